// Package ragdex provides an embeddable hybrid retrieval engine: dense
// and lexical indexes over chunked documents, weighted rank fusion,
// confidence scoring and grounded answer generation.
//
// The zero-configuration engine runs entirely in process memory with a
// deterministic feature-hashing embedder, so it needs no database and
// no credentials:
//
//	engine, _ := ragdex.New()
//	defer engine.Close()
//
//	engine.Ingest(ctx, ragdex.Document{ID: "notes", Text: text})
//	res, _ := engine.Search(ctx, "how do I rotate the API key", nil)
//	for _, r := range res.Results {
//	    fmt.Println(r.Rank, r.Score, r.Text)
//	}
//
// Production deployments plug in a persistent store and real providers:
//
//	engine, _ := ragdex.New(
//	    ragdex.WithValkey("localhost:6379", ""),
//	    ragdex.WithEmbedder(embedder, "bge-m3", 1024),
//	    ragdex.WithGenerator(generator),
//	    ragdex.WithResultCache(5*time.Minute),
//	)
//	ans, _ := engine.Answer(ctx, "how do I rotate the API key", nil)
//	if ans.Refused {
//	    // Evidence too weak, ans.Answer carries the fixed refusal text.
//	}
//
// The same pipeline is served over HTTP by cmd/ragdex; pkg/sdk is the
// typed client for it.
package ragdex
