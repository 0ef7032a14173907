package api

import (
	"errors"
	"net/http"

	"github.com/chxlky/forum-trello-sync/internal/apperr"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Trello returns the token in the URL fragment, which never reaches the
// server, so the page posts it back to /save_token.
const callbackPage = `<!DOCTYPE html>
<html>
<head>
    <title>Forum Trello Sync | OAuth Handler</title>
</head>
<body>
    <h2>Processing OAuth...</h2>
    <script>
        const hashParams = new URLSearchParams(window.location.hash.substring(1));
        const token = hashParams.get('token');

        const urlParams = new URLSearchParams(window.location.search);
        const serverId = urlParams.get('server_id');

        if (token && serverId) {
            fetch('/save_token', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({server_id: serverId, token: token})
            })
            .then(async response => {
                const text = await response.text();
                if (response.ok) return text;
                try {
                    const e = JSON.parse(text);
                    return e.title + (e.description ? ': ' + e.description : '') + (e.code ? ' (' + e.code + ')' : '');
                } catch {
                    return text;
                }
            })
            .then(data => { document.body.innerHTML = '<h2>' + data + '</h2>'; })
            .catch(error => { document.body.innerHTML = '<h2>Error saving token: ' + error + '</h2>'; });
        } else {
            document.body.innerHTML = '<h2>Error: Missing token or server ID</h2>';
        }
    </script>
</body>
</html>
`

func (h *Handler) OAuthCallbackHandler(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(callbackPage))
}

type saveTokenRequest struct {
	ServerID string `json:"server_id"`
	Token    string `json:"token"`
}

func (h *Handler) SaveTokenHandler(c *gin.Context) {
	var req saveTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ServerID == "" || req.Token == "" {
		h.fail(c, apperr.InvalidInput("Missing token or server_id"))
		return
	}

	if err := h.Store.SetServerToken(c.Request.Context(), req.ServerID, req.Token); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.fail(c, apperr.InvalidInput("Server "+req.ServerID+" has not requested a link"))
			return
		}
		h.fail(c, err)
		return
	}

	zap.L().Info("Saved Trello token", zap.String("serverID", req.ServerID))
	c.String(http.StatusOK, "Authorization successful! You can close this tab now.")
}
