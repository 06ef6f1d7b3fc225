// Package chunker splits the file under review into excerpts that are
// embedded and searched individually against stored review comments.
//
// # Strategies
//
// Three strategies run over the same line-split input and their results are
// concatenated in this order:
//
//  1. Fixed chunks: non-overlapping blocks of 10 lines, kept when the trimmed
//     content is longer than 20 characters.
//  2. Windows: 8 lines advancing by 4, kept when longer than 30 characters.
//  3. Function context: every line holding both "(" and ")" and longer than
//     10 characters after trimming, with 3 lines either side. The call line
//     is recorded as the chunk's focus line.
//
// Chunks of 25 characters or fewer are then dropped and repeated content is
// removed, keeping the first occurrence.
//
// # Usage
//
//	chunks := chunker.New().Chunk(source)
//	for _, ch := range chunker.Priority(chunks) {
//	    fmt.Printf("call site at line %d (%d-%d)\n", ch.FocusLine, ch.StartLine, ch.EndLine)
//	}
//
// Function-context chunks are the priority tier for search; everything else
// is returned by Regular.
package chunker
