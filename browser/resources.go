package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// configNames maps the plural names accepted in config to CDP resource types.
var configNames = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
}

// blockSet is the resource types a fetch refuses to load. Text only needs
// the document and its scripts, so everything else may go.
type blockSet map[proto.NetworkResourceType]bool

func newBlockSet(names []string) blockSet {
	set := make(blockSet, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if t, ok := configNames[n]; ok {
			set[t] = true
			continue
		}
		// CDP names ("Image", "XHR") are accepted as is.
		for _, t := range []proto.NetworkResourceType{
			proto.NetworkResourceTypeImage, proto.NetworkResourceTypeFont,
			proto.NetworkResourceTypeMedia, proto.NetworkResourceTypeStylesheet,
			proto.NetworkResourceTypeScript, proto.NetworkResourceTypeXHR,
			proto.NetworkResourceTypeFetch, proto.NetworkResourceTypeWebSocket,
		} {
			if strings.EqualFold(string(t), n) {
				set[t] = true
			}
		}
	}
	return set
}

// blocks never refuses the page document itself.
func (s blockSet) blocks(t proto.NetworkResourceType) bool {
	return t != proto.NetworkResourceTypeDocument && s[t]
}

// blockResources fails requests for the configured types. The returned
// router must be stopped when the page is done.
func blockResources(page *rod.Page, names []string) *rod.HijackRouter {
	set := newBlockSet(names)
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if set.blocks(h.Request.Type()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}
