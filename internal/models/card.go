package models

type Board struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type List struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	BoardID string `json:"idBoard"`
	Closed  bool   `json:"closed"`
}

type Label struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	BoardID string `json:"idBoard"`
}

type Card struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"desc"`
	ListID      string   `json:"idList"`
	LabelIDs    []string `json:"idLabels"`
	ShortLink   string   `json:"shortLink"`
	URL         string   `json:"url"`
	Closed      bool     `json:"closed"`
}

type LabelCreate struct {
	BoardID string
	Name    string
	Color   string
}

type LabelUpdate struct {
	ID    string
	Name  string
	Color string
}

type CardCreate struct {
	ListID      string
	Name        string
	Description string
	LabelIDs    []string
}

type CardUpdate struct {
	ID          string
	ListID      string
	Name        string
	Description string
	LabelIDs    []string
}
