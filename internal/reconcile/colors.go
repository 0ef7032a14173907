package reconcile

import (
	"github.com/chxlky/forum-trello-sync/internal/models"
)

// LabelColors is the Trello label palette.
var LabelColors = []string{
	"green", "yellow", "orange", "red", "purple", "blue", "sky", "lime", "pink", "black",
	"green_dark", "yellow_dark", "orange_dark", "red_dark", "purple_dark",
	"blue_dark", "sky_dark", "lime_dark", "pink_dark", "black_dark",
	"green_light", "yellow_light", "orange_light", "red_light", "purple_light",
	"blue_light", "sky_light", "lime_light", "pink_light", "black_light",
}

type colorPicker struct {
	used map[string]bool
	intn func(int) int
}

func newColorPicker(labels []models.Label, intn func(int) int) *colorPicker {
	used := make(map[string]bool, len(labels))
	for _, l := range labels {
		if l.Color != "" {
			used[l.Color] = true
		}
	}
	return &colorPicker{used: used, intn: intn}
}

// pick returns a random unused color, or any color once the palette is
// exhausted. The returned color counts as used from then on.
func (p *colorPicker) pick() string {
	free := make([]string, 0, len(LabelColors))
	for _, c := range LabelColors {
		if !p.used[c] {
			free = append(free, c)
		}
	}
	if len(free) == 0 {
		free = LabelColors
	}
	color := free[p.intn(len(free))]
	p.used[color] = true
	return color
}
