// CLAUDE:SUMMARY Pointer events in, overlay state out: the hover-reveal wire types.
package mutation

// Pointer is a pointer position reported by the page. XPath addresses the
// text node under the pointer, as resolved by the page's caret hit-test.
type Pointer struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	XPath string `json:"xpath,omitempty"`
}

// Overlay is the state of the hover tooltip after a pointer event.
type Overlay struct {
	Visible bool   `json:"visible"`
	Text    string `json:"text,omitempty"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}
