package assistant

// BlockKind tags the content-block variant. Blocks are an explicit
// union of {text, image-reference}; nothing downstream inspects untyped
// maps.
type BlockKind string

const (
	BlockText  BlockKind = "text"
	BlockImage BlockKind = "image"
)

type Block struct {
	Kind     BlockKind
	Text     string
	ImageURL string
}

func TextBlock(text string) Block {
	return Block{Kind: BlockText, Text: text}
}

func ImageBlock(url string) Block {
	return Block{Kind: BlockImage, ImageURL: url}
}

// ImageBlocks formats image URLs into content blocks, preserving input
// order.
func ImageBlocks(urls []string) []Block {
	blocks := make([]Block, 0, len(urls))
	for _, u := range urls {
		blocks = append(blocks, ImageBlock(u))
	}
	return blocks
}
