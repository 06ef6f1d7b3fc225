// Package searcher retrieves historical review comments relevant to code
// under review.
//
// A retrieval call chunks the target file, runs several similarity queries
// against the comment store, scores and filters the merged candidates,
// reranks them and trims the list for diversity.
//
// # Basic Usage
//
//	r := searcher.NewRetriever(store, emb, searcher.Options{}, logger)
//
//	resp, err := r.Retrieve(ctx, searcher.Request{
//	    Query: types.Query{
//	        Text:        "error handling in token refresh",
//	        TargetCode:  string(src),
//	        TargetPath:  "internal/auth/refresh.go",
//	        ProjectPath: "/src/acme",
//	    },
//	    Limit: 10,
//	})
//
//	for _, c := range resp.Results {
//	    fmt.Printf("%s %.2f %s\n", c.Comment.ID, c.Scores.Final, c.Comment.Body)
//	}
//
// # Strategies
//
// The Orchestrator issues these storage queries, all filtered by the
// request's project path:
//
//   - comment: the query vector against comment embeddings
//   - combined: the query vector against combined embeddings
//   - chunk_comment and chunk_code: each selected chunk's embedding against
//     comment and code embeddings (up to 6 function_context chunks and 3
//     others)
//
// Units run on a bounded errgroup. A unit never returns an error to the
// group, so one failing query cannot cancel the others. Results land in
// fixed slots and are merged in slot order, which keeps the output
// deterministic.
//
// # Failure Handling
//
// Request validation errors are returned to the caller and wrap
// ErrInvalidRequest. Everything else degrades: a Response with no results,
// Degraded set and the reasons listed in Failures. Failed strategies that
// did not stop the call are listed in Failures as well.
package searcher
