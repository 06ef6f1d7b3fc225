// Package scoring annotates retrieval candidates with context, quality,
// recency and classifier scores, applies the quality filter, and reranks the
// survivors with one of two fixed formulas.
//
// The classifiers (technical, generic, suggestion, bot, test) are
// approximations: each is the cosine similarity between a candidate's
// embedding and the embedding of a fixed reference phrase. The phrases live
// in phrases.go as constants so that scoring is reproducible across runs and
// deployments that share an embedding model.
//
// # Strategies
//
// StrategyContextual weights semantic, context, quality and recency scores.
// StrategyChunk favours candidates matched through code chunks of the file
// under review and adds path and content bonuses. Both share the quality
// filter.
package scoring
