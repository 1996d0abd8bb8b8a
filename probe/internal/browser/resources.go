package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// pluralTypes maps config names to CDP resource types.
var pluralTypes = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
}

// blockedTypes turns config names ("images", "fonts", or a raw CDP type such
// as "WebSocket", any case) into a lookup set keyed by lowercase CDP type.
// Scripts are never blocked: custom elements attach their shadow roots from
// script.
func blockedTypes(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if t, ok := pluralTypes[n]; ok {
			n = strings.ToLower(string(t))
		}
		if n == "" || n == "script" || n == "scripts" || n == "document" {
			continue
		}
		set[n] = true
	}
	return set
}

// blockResources fails matching requests on page. The router must be
// stopped when the tab closes.
func blockResources(page *rod.Page, names []string) *rod.HijackRouter {
	set := blockedTypes(names)
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if set[strings.ToLower(string(h.Request.Type()))] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}
