// Dendrite is the talent evaluation service: it ingests free-form
// evaluations, distills them into skills and profiles with an LLM, and
// serves attribution-weighted semantic search over the results.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YangKGcsdms/Dendrite/internal/config"
	"github.com/YangKGcsdms/Dendrite/internal/llm"
	"github.com/YangKGcsdms/Dendrite/internal/pipeline"
	"github.com/YangKGcsdms/Dendrite/internal/progress"
	"github.com/YangKGcsdms/Dendrite/internal/queue"
	"github.com/YangKGcsdms/Dendrite/internal/quota"
	"github.com/YangKGcsdms/Dendrite/internal/reward"
	"github.com/YangKGcsdms/Dendrite/internal/search"
	"github.com/YangKGcsdms/Dendrite/internal/server"
	"github.com/YangKGcsdms/Dendrite/internal/storage/postgres"
	"github.com/YangKGcsdms/Dendrite/internal/tags"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := postgres.NewStore(cfg.Storage.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	q, err := queue.NewSQLiteQueue(cfg.Storage.QueuePath)
	if err != nil {
		log.Fatalf("Failed to open evaluation queue: %v", err)
	}
	defer q.Close()

	generator, err := llm.NewTextGenerator(cfg.AI)
	if err != nil {
		log.Fatalf("Failed to initialize text generator: %v", err)
	}
	embedder, err := llm.NewEmbeddingGenerator(cfg.AI)
	if err != nil {
		log.Fatalf("Failed to initialize embedding generator: %v", err)
	}

	gate := quota.NewGate(cfg.AI.QuotaInterval)
	tracker := progress.NewTracker()
	ledger := reward.NewLedger(store, store)

	extractor := pipeline.NewSkillExtractor(generator, store)
	synthesizer := pipeline.NewProfileSynthesizer(generator, store, store)
	vectorizer := pipeline.NewBatchVectorGenerator(gate, embedder, store, store)
	pipe := pipeline.NewPipeline(extractor, synthesizer, vectorizer)

	worker := pipeline.NewWorker(q, pipe, pipeline.WorkerConfig{
		ScanInterval:    cfg.Worker.ScanInterval,
		InitialDelay:    cfg.Worker.InitialDelay,
		MaxBatchSize:    cfg.Worker.MaxBatchSize,
		ShutdownTimeout: cfg.Worker.ShutdownTimeout,
	})
	processor := pipeline.NewProcessor(extractor, synthesizer, vectorizer, tracker)

	tagService := tags.NewService(generator, embedder, gate, store, ledger)

	engine, err := search.NewEngine(generator, embedder, gate, store, cfg.Search.PoolSize, cfg.Search.QueryExpansion)
	if err != nil {
		log.Fatalf("Failed to initialize search engine: %v", err)
	}
	defer engine.Close()

	attribution := search.NewAttribution(store, embedder, gate, ledger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handlers := server.NewHandlers(q, processor, tracker, worker,
		tagService, engine, attribution, ledger, store,
		cfg.AI.Provider, generator.GetModel())

	addr, wsHub, err := server.Start(ctx, cfg, handlers)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Dendrite running at http://%s", addr)

	// Progress updates stream to WebSocket watchers as they happen.
	tracker.SetBroadcast(func(u progress.Update) { wsHub.Broadcast(u) })

	worker.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	if err := worker.Stop(); err != nil {
		log.Printf("WARNING: %v", err)
	}
	cancel()
	time.Sleep(time.Second)
}
