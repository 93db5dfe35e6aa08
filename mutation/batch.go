// Package mutation defines the records exchanged with a live page: the DOM
// changes a watcher reports (inserts, removals, text edits, resets) and the
// text patches footalk sends back after rewriting units.
//
// The field layout is the domwatch JSON contract, so a watcher's stdout can
// be piped straight into footalk serve.
package mutation

// Op is the type of DOM mutation.
type Op string

const (
	OpInsert   Op = "insert"    // node inserted; HTML carries the subtree (or text value)
	OpRemove   Op = "remove"    // node removed
	OpText     Op = "text"      // character data replaced
	OpAttr     Op = "attr"      // attribute set
	OpAttrDel  Op = "attr_del"  // attribute removed
	OpDocReset Op = "doc_reset" // document replaced; a snapshot follows
)

// Node types carried in Record.NodeType.
const (
	ElementNode = 1
	TextNode    = 3
	CommentNode = 8
)

// Record is a single DOM mutation.
//
// For OpInsert, XPath addresses the inserted node itself: its parent is the
// path minus the last step and the step's index gives its position among
// same-kind siblings.
type Record struct {
	Op       Op     `json:"op"`
	XPath    string `json:"xpath"`
	NodeType int    `json:"node_type,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Name     string `json:"name,omitempty"`      // attribute name for attr/attr_del
	Value    string `json:"value,omitempty"`     // new value
	OldValue string `json:"old_value,omitempty"` // previous value
	HTML     string `json:"html,omitempty"`      // serialised subtree for insert
}

// Batch is one atomic group of records: everything observed in a single
// delivery window, or every unit rewritten by a single scan.
type Batch struct {
	ID          string   `json:"id"` // UUIDv7
	PageURL     string   `json:"page_url"`
	PageID      string   `json:"page_id"`
	Seq         uint64   `json:"seq"` // monotonically increasing per page
	Records     []Record `json:"records"`
	Timestamp   int64    `json:"timestamp"` // epoch milliseconds
	SnapshotRef string   `json:"snapshot_ref,omitempty"`
}
