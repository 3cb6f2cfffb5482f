package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/craftpanel/pluginhub/pkg/httputil"
	"github.com/craftpanel/pluginhub/pkg/linkstore"
	"github.com/craftpanel/pluginhub/pkg/observability"
)

// polymartLink handles POST /api/client/plugins/polymart/link. It creates a
// pending link row keyed by a fresh state nonce and asks Polymart for the
// authorization page the browser should visit.
func (s *Server) polymartLink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ServerID, "serverId") {
		return
	}

	userID := observability.GetUserID(r.Context())
	state, err := s.links.CreatePending(r.Context(), userID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to create pending Polymart link")
		httputil.WriteInternalError(w, err)
		return
	}

	returnURL := fmt.Sprintf("%s/api/client/plugins/polymart/callback?serverId=%s",
		s.publicBaseURL, url.QueryEscape(req.ServerID))

	redirectURL, err := s.registry.Polymart().AuthorizeUser(r.Context(), s.panelHost(), returnURL, state)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Polymart authorization request failed")
		httputil.WriteErrorMessage(w, http.StatusBadGateway, "Polymart did not accept the authorization request")
		return
	}

	httputil.WriteSuccess(w, LinkResponse{RedirectURL: redirectURL})
}

// polymartCallback handles GET /api/client/plugins/polymart/callback. The
// browser arrives here from Polymart carrying the state nonce issued by the
// link handler, plus the token when the user approved.
func (s *Server) polymartCallback(w http.ResponseWriter, r *http.Request) {
	state := httputil.ParseQueryString(r, "state", "")
	link, err := s.links.FindByState(r.Context(), state)
	if err != nil {
		if errors.Is(err, linkstore.ErrStateNotFound) {
			httputil.WriteNotFoundError(w, "unknown link state")
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("Polymart callback lookup failed")
		httputil.WriteInternalError(w, err)
		return
	}

	// A declined handshake leaves the row pending; the sweeper reclaims it.
	success := httputil.ParseQueryString(r, "success", "")
	token := httputil.ParseQueryString(r, "token", "")
	if success == "1" && token != "" {
		if err := s.links.SetToken(r.Context(), link.ID, token); err != nil {
			observability.FromContext(r.Context()).WithError(err).Error("Failed to store Polymart token")
			httputil.WriteInternalError(w, err)
			return
		}
	}

	serverID := httputil.ParseQueryString(r, "serverId", "")
	target := fmt.Sprintf("%s/server/%s/minecraft-plugins?provider=polymart",
		s.panelBaseURL, url.PathEscape(serverID))
	http.Redirect(w, r, target, http.StatusFound)
}

// polymartDisconnect handles POST /api/client/plugins/polymart/disconnect.
// Upstream token invalidation is best effort; the local rows are removed
// regardless so the account ends up unlinked from the panel's point of view.
func (s *Server) polymartDisconnect(w http.ResponseWriter, r *http.Request) {
	userID := observability.GetUserID(r.Context())

	links, err := s.links.ListByUser(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	for _, link := range links {
		if !link.Token.Valid || link.Token.String == "" {
			continue
		}
		if err := s.registry.Polymart().InvalidateToken(r.Context(), link.Token.String); err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("Polymart token invalidation failed")
		}
	}

	if err := s.links.DeleteByUser(r.Context(), userID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// polymartIsLinked handles GET /api/client/plugins/polymart/is-linked.
func (s *Server) polymartIsLinked(w http.ResponseWriter, r *http.Request) {
	linked, err := s.links.IsLinked(r.Context(), observability.GetUserID(r.Context()))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, LinkedResponse{Linked: linked})
}

// panelHost extracts the host presented to Polymart as the requesting
// service name.
func (s *Server) panelHost() string {
	if u, err := url.Parse(s.panelBaseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return s.panelBaseURL
}
