package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/dshills/reviewrecall/pkg/types"
)

const (
	// FixedChunkLines is the height of a non-overlapping fixed chunk
	FixedChunkLines = 10
	// FixedChunkMinChars is the trimmed length a fixed chunk must exceed
	FixedChunkMinChars = 20

	// WindowLines is the height of an overlapping window
	WindowLines = 8
	// WindowStep is how far consecutive windows advance
	WindowStep = 4
	// WindowMinChars is the trimmed length a window must exceed
	WindowMinChars = 30

	// ContextRadius is the number of lines kept on each side of a call site
	ContextRadius = 3
	// CallSiteMinChars is the trimmed length a call-site line must exceed
	CallSiteMinChars = 10

	// MinChunkChars drops any chunk whose trimmed content is not longer than this
	MinChunkChars = 25
)

// Chunker splits the file under review into overlapping excerpts used as
// alternate search queries
type Chunker struct {
	fixedLines    int
	windowLines   int
	windowStep    int
	contextRadius int
}

// New creates a Chunker with the default geometry
func New() *Chunker {
	return &Chunker{
		fixedLines:    FixedChunkLines,
		windowLines:   WindowLines,
		windowStep:    WindowStep,
		contextRadius: ContextRadius,
	}
}

// Chunk returns fixed chunks, then windows, then function-context chunks,
// each in file order, with short chunks and repeated content removed.
// Empty input yields no chunks.
func (c *Chunker) Chunk(text string) []types.CodeChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lines := splitLines(text)

	candidates := make([]types.CodeChunk, 0, len(lines)/2)
	candidates = append(candidates, c.fixedChunks(lines)...)
	candidates = append(candidates, c.windows(lines)...)
	candidates = append(candidates, c.functionContexts(lines)...)

	seen := make(map[string]struct{}, len(candidates))
	chunks := make([]types.CodeChunk, 0, len(candidates))
	for _, ch := range candidates {
		if trimmedLen(ch.Content) <= MinChunkChars {
			continue
		}
		if _, dup := seen[ch.Content]; dup {
			continue
		}
		seen[ch.Content] = struct{}{}
		chunks = append(chunks, ch)
	}

	return chunks
}

func (c *Chunker) fixedChunks(lines []string) []types.CodeChunk {
	var out []types.CodeChunk
	for start := 0; start < len(lines); start += c.fixedLines {
		end := min(len(lines), start+c.fixedLines)
		content := strings.Join(lines[start:end], "\n")
		if trimmedLen(content) <= FixedChunkMinChars {
			continue
		}
		out = append(out, types.CodeChunk{
			Content:   content,
			StartLine: start + 1,
			EndLine:   end,
			Kind:      types.ChunkFixed,
		})
	}
	return out
}

func (c *Chunker) windows(lines []string) []types.CodeChunk {
	var out []types.CodeChunk
	for start := 0; start < len(lines); start += c.windowStep {
		end := min(len(lines), start+c.windowLines)
		content := strings.Join(lines[start:end], "\n")
		if trimmedLen(content) > WindowMinChars {
			out = append(out, types.CodeChunk{
				Content:   content,
				StartLine: start + 1,
				EndLine:   end,
				Kind:      types.ChunkWindow,
			})
		}
	}
	return out
}

func (c *Chunker) functionContexts(lines []string) []types.CodeChunk {
	var out []types.CodeChunk
	for i, line := range lines {
		if !IsCallSite(line) {
			continue
		}
		start := max(0, i-c.contextRadius)
		end := min(len(lines), i+c.contextRadius+1)
		out = append(out, types.CodeChunk{
			Content:   strings.Join(lines[start:end], "\n"),
			StartLine: start + 1,
			EndLine:   end,
			Kind:      types.ChunkFunctionContext,
			FocusLine: i + 1,
		})
	}
	return out
}

// IsCallSite reports whether line looks like a call or declaration with a
// parameter list
func IsCallSite(line string) bool {
	return strings.Contains(line, "(") &&
		strings.Contains(line, ")") &&
		trimmedLen(line) > CallSiteMinChars
}

// Priority returns the function_context chunks in order
func Priority(chunks []types.CodeChunk) []types.CodeChunk {
	return OfKind(chunks, types.ChunkFunctionContext)
}

// Regular returns every chunk that is not function_context, in order
func Regular(chunks []types.CodeChunk) []types.CodeChunk {
	var out []types.CodeChunk
	for _, ch := range chunks {
		if !ch.IsPriority() {
			out = append(out, ch)
		}
	}
	return out
}

// OfKind returns the chunks of the given kind, in order
func OfKind(chunks []types.CodeChunk, kind types.ChunkKind) []types.CodeChunk {
	var out []types.CodeChunk
	for _, ch := range chunks {
		if ch.Kind == kind {
			out = append(out, ch)
		}
	}
	return out
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func trimmedLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
