package vectorstore

import (
	"context"
	"fmt"
	"time"

	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// memoryClass describes the Weaviate class holding memory points.
// Vectors are supplied by the embedder, so the class has no vectorizer.
func memoryClass(name string) *models.Class {
	return &models.Class{
		Class:       name,
		Description: "OpenMemory memory embeddings",
		Vectorizer:  "none",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
		Properties: []*models.Property{
			{Name: "memoryId", DataType: []string{"text"}},
			{Name: "userId", DataType: []string{"text"}},
			{Name: "appName", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "createdAt", DataType: []string{"date"}},
		},
	}
}

// BootstrapWeaviate ensures the memory class exists. Existing classes are left untouched.
func BootstrapWeaviate(ctx context.Context, baseURL, className string) error {
	cl, err := weaviate.NewClient(weaviate.Config{Scheme: "http", Host: baseURL})
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	ex, err := cl.Schema().ClassGetter().WithClassName(className).Do(cctx)
	if err == nil && ex != nil {
		return nil
	}
	if err := cl.Schema().ClassCreator().WithClass(memoryClass(className)).Do(cctx); err != nil {
		return fmt.Errorf("create class %s: %w", className, err)
	}
	return nil
}
