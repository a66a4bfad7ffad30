package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 路由增删时需要同步维护 docTemplate
func TestDocCoversRegisteredRoutes(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))

	routes := map[string]string{
		"/health":                "get",
		"/register":              "post",
		"/login":                 "post",
		"/courses":               "get",
		"/courses/{id}":          "get",
		"/courses/{id}/enroll":   "post",
		"/lessons/{id}":          "get",
		"/lessons/{id}/start":    "post",
		"/lessons/{id}/complete": "post",
		"/exercises/{id}/answer": "post",
		"/achievements":          "get",
		"/leaderboard":           "get",
		"/leaderboard/me":        "get",
		"/profile":               "get",
		"/profile/avatar":        "post",
		"/debug/state":           "get",
	}
	for path, method := range routes {
		ops, ok := doc.Paths[path]
		if assert.True(t, ok, path) {
			assert.Contains(t, ops, method, path)
		}
	}
}
