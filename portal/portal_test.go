package portal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/restaurant-portal/gateway"
	"github.com/jrsteele09/restaurant-portal/internal/utils"
	"github.com/jrsteele09/restaurant-portal/portal"
	"github.com/stretchr/testify/require"
)

const sitemapJSON = `[
  {"id": 633, "parentId": null, "to": null, "label": "User administration", "appCode": "ADMIN",
   "status": 1, "ord": 4, "type": "1", "includeMenu": 1, "rights": [],
   "items": [
     {"id": 636, "parentId": 633, "to": "/sec_module?urlPathId=636", "label": "2. Functions", "appCode": "ADMIN",
      "status": 1, "ord": 1, "type": "2", "includeMenu": 1, "rights": [], "items": []},
     {"id": 635, "parentId": 633, "to": "/applicationList?urlPathId=635", "label": "1. Applications", "appCode": "ADMIN",
      "status": 1, "ord": 0, "type": "2", "includeMenu": 1, "rights": [{"code": "VIEW"}], "items": []},
     {"id": 640, "parentId": 633, "to": "/hidden", "label": "Hidden", "appCode": "ADMIN",
      "status": 0, "ord": 2, "type": "2", "includeMenu": 1, "rights": [], "items": []}
   ]},
  {"id": 700, "parentId": null, "to": "/reports", "label": "Reports", "appCode": "ADMIN",
   "status": 1, "ord": 1, "type": "2", "includeMenu": 1, "rights": [], "items": []},
  {"id": 701, "parentId": null, "to": "/internal", "label": "Internal", "appCode": "ADMIN",
   "status": 1, "ord": 0, "type": "2", "includeMenu": 0, "rights": [], "items": []}
]`

func newAPI(t *testing.T, handler http.HandlerFunc) *portal.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g := gateway.New(nil, func() string { return "token" }, nil, gateway.WithBaseURL(srv.URL))
	return portal.NewClient(g)
}

func TestCurrentUserAndUpdateProfile(t *testing.T) {
	var gotMethod, gotBody string
	client := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/me", r.URL.Path)
		require.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		gotMethod = r.Method
		if r.Method == http.MethodPut {
			var b map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&b))
			raw, _ := json.Marshal(b)
			gotBody = string(raw)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u1","username":"jdoe","email":"jdoe@example.com","firstName":"John"}`))
	})
	ctx := context.Background()

	user, err := client.CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, http.MethodGet, gotMethod)
	require.Equal(t, portal.User{ID: "u1", Username: "jdoe", Email: "jdoe@example.com", FirstName: "John"}, *user)

	_, err = client.UpdateProfile(ctx, portal.ProfileUpdate{FirstName: utils.Ptr("Johnny")})
	require.NoError(t, err)
	require.Equal(t, http.MethodPut, gotMethod)
	require.Equal(t, `{"firstName":"Johnny"}`, gotBody)
}

func TestSitemap(t *testing.T) {
	var gotAppCode string
	client := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/identity-service/api/resource/sitemap", r.URL.Path)
		gotAppCode = r.URL.Query().Get("appCode")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sitemapJSON))
	})

	menu, err := client.Sitemap(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, portal.DefaultAppCode, gotAppCode)
	require.Equal(t, 6, menu.Count())

	_, err = client.Sitemap(context.Background(), "POS")
	require.NoError(t, err)
	require.Equal(t, "POS", gotAppCode)

	item, ok := menu.Find(635)
	require.True(t, ok)
	require.Equal(t, "/applicationList?urlPathId=635", item.Route())
	require.Len(t, item.Rights, 1)
	require.Equal(t, 633, *item.ParentID)

	_, ok = menu.Find(999)
	require.False(t, ok)
}

func TestMenuVisible(t *testing.T) {
	var menu portal.Menu
	require.NoError(t, json.Unmarshal([]byte(sitemapJSON), &menu))

	visible := menu.Visible()
	require.Len(t, visible, 2)
	require.Equal(t, 700, visible[0].ID)
	require.Equal(t, 633, visible[1].ID)
	require.Equal(t, "/reports", visible[0].Route())
	require.Empty(t, visible[1].Route())

	children := visible[1].Items
	require.Len(t, children, 2)
	require.Equal(t, "1. Applications", children[0].Label)
	require.Equal(t, "2. Functions", children[1].Label)

	// the source tree is untouched
	require.Len(t, menu[0].Items, 3)
}

func TestMenuWalkDepth(t *testing.T) {
	var menu portal.Menu
	require.NoError(t, json.Unmarshal([]byte(sitemapJSON), &menu))

	depths := map[int]int{}
	menu.Walk(func(item portal.MenuItem, depth int) bool {
		depths[item.ID] = depth
		return item.ID != 700
	})
	require.Equal(t, 0, depths[633])
	require.Equal(t, 1, depths[636])
	require.Equal(t, 0, depths[701])
}

func TestSitemapError(t *testing.T) {
	client := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Sitemap(context.Background(), "")
	apiErr, ok := gateway.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
}
