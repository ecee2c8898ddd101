package markdown

import (
	"regexp"
	"strings"
)

// Matches fenced code blocks. Group 1 is the language, group 2 the code.
var codeBlockRegexp = regexp.MustCompile("(?sm)^```([a-zA-Z0-9_+-]*)\\n(.*?)^```")

// Block is a segment of a reply.
type Block interface {
	Content() string
}

// TextBlock is prose.
type TextBlock struct {
	Text string
}

// Content implements Block.
func (b *TextBlock) Content() string { return b.Text }

// CodeBlock is a fenced code block.
type CodeBlock struct {
	Language string
	Code     string
}

// Content implements Block.
func (b *CodeBlock) Content() string { return b.Code }

// ParseBlocks splits text into prose and fenced code blocks, in order.
func ParseBlocks(content string) []Block {
	var blocks []Block
	appendText := func(text string) {
		if strings.TrimSpace(text) != "" {
			blocks = append(blocks, &TextBlock{Text: text})
		}
	}

	last := 0
	for _, match := range codeBlockRegexp.FindAllStringSubmatchIndex(content, -1) {
		appendText(content[last:match[0]])
		blocks = append(blocks, &CodeBlock{
			Language: content[match[2]:match[3]],
			Code:     strings.Trim(content[match[4]:match[5]], "\n"),
		})
		last = match[1]
	}
	appendText(content[last:])
	return blocks
}

// LastCodeBlock returns the last fenced code block of the text.
func LastCodeBlock(content string) (*CodeBlock, bool) {
	blocks := ParseBlocks(content)
	for i := len(blocks) - 1; i >= 0; i-- {
		if block, ok := blocks[i].(*CodeBlock); ok {
			return block, true
		}
	}
	return nil, false
}
