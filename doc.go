// Package vecstore stores text embeddings and serves similarity search over them.
//
// A Store is opened per embedding model. It owns an ANN index (flat, hnsw or
// ivf), a dense catalog of records aligned with the index positions, and a
// namespace index. Every ingestion batch is persisted as three artifacts in a
// blob store, so a crash loses at most one batch.
//
// # Quick Start
//
//	ctx := context.Background()
//	provider := embedding.NewHashing("hashing-384", 384)
//	store, err := vecstore.Open(ctx, provider, vecstore.WithIndexDir("./data"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	ids, _ := store.AddTexts(ctx, []string{"cat on a mat"}, nil, vecstore.WithNamespace("pets"))
//	results, _ := store.SimilaritySearch(ctx, "feline", 5)
//
// # Deletion
//
// Delete is soft: records are flagged and leave their namespace, but the
// vectors stay in the index until Compact rebuilds it from live entries.
//
// # Scores
//
// Search results carry the raw squared L2 distance and a bounded ranking
// score (see ScoreFromDistance). ComputeRelevance returns true cosine
// similarity rescaled to [0, 1] and does not touch the index.
package vecstore
