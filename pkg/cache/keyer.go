package cache

// Keyer builds cache keys for each pipeline stage.
type Keyer interface {
	// LayoutKey generates a key for a layout of the hierarchy with treeHash.
	LayoutKey(treeHash string, opts LayoutKeyOpts) string

	// ArtifactKey generates a key for a rendered artifact of a layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts holds every input of the layout engine besides the tree.
type LayoutKeyOpts struct {
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	PaddingInner float64 `json:"padding_inner"`
	PaddingTop   float64 `json:"padding_top"`
	HeaderHeight float64 `json:"header_height"`
}

// ArtifactKeyOpts holds the render options that change artifact bytes.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	// Selection is "date/maturity"; JSON output embeds it.
	Selection string  `json:"selection,omitempty"`
	Title     string  `json:"title,omitempty"`
	Margin    float64 `json:"margin,omitempty"`
	Viewport  string  `json:"viewport,omitempty"`
	Scale     float64 `json:"scale,omitempty"`
}

// DefaultKeyer hashes stage options into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey returns "layout:<sha256>".
func (DefaultKeyer) LayoutKey(treeHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", treeHash, opts)
}

// ArtifactKey returns "artifact:<sha256>".
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
