package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/digestkit/digestd/pkg/models"
	"github.com/digestkit/digestd/pkg/slack"
)

// handleSlackInstall redirects the browser to the Slack consent page.
func (s *Server) handleSlackInstall(c *gin.Context) {
	if s.cfg.SlackClientID == "" {
		c.JSON(http.StatusInternalServerError, errorBody("SLACK_CLIENT_ID not configured"))
		return
	}
	redirectURI := s.cfg.SlackRedirectURI
	if redirectURI == "" {
		redirectURI = requestScheme(c) + "://" + c.Request.Host + "/slack/oauth_redirect"
	}
	c.Redirect(http.StatusFound, slack.BuildInstallURL(s.cfg.SlackClientID, s.cfg.SlackOAuthScopes, redirectURI))
}

// handleOAuthRedirect completes the install: exchanges the code and stores
// the workspace token.
func (s *Server) handleOAuthRedirect(c *gin.Context) {
	if s.cfg.SlackRedirectURI == "" {
		c.JSON(http.StatusInternalServerError, errorBody("SLACK_REDIRECT_URI not configured"))
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, errorBody("missing_code"))
		return
	}
	if s.cfg.SlackClientID == "" || s.cfg.SlackClientSecret == "" {
		c.JSON(http.StatusBadRequest, errorBody("missing_client_config"))
		return
	}

	resp, err := slack.ExchangeCode(c.Request.Context(),
		s.cfg.SlackClientID, s.cfg.SlackClientSecret, code, s.cfg.SlackRedirectURI)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("oauth_failed"))
		return
	}
	if resp.Team.ID == "" || resp.AccessToken == "" {
		c.JSON(http.StatusBadRequest, errorBody("invalid_oauth_payload"))
		return
	}

	workspace := &models.Workspace{
		TeamID:      resp.Team.ID,
		AccessToken: resp.AccessToken,
		BotUserID:   resp.BotUserID,
		Scopes:      datatypes.NewJSONSlice(splitScopes(resp.Scope)),
		InstalledAt: epochNow(),
	}
	if err := s.store.UpsertWorkspace(c.Request.Context(), workspace); err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "installed", "team_id": resp.Team.ID})
}

func splitScopes(scope string) []string {
	if scope == "" {
		return []string{}
	}
	parts := strings.Split(scope, ",")
	scopes := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			scopes = append(scopes, trimmed)
		}
	}
	return scopes
}

func epochNow() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

func requestScheme(c *gin.Context) string {
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}
