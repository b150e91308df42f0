// questcore is the host binary for the Finance Quest learning core: it owns
// the composition root that wires a persistence slot backend into the cache
// store and keeps the spaced-repetition item collection durable, and exposes
// small subcommands to drive both from the command line.
//
// Usage:
//
//	questcore [-config path] seed
//	questcore [-config path] due
//	questcore [-config path] review <concept-id> <quality 0-5> <confidence 1-5> <seconds>
//	questcore [-config path] stats
//	questcore [-config path] set <key> <value>
//	questcore [-config path] get <key>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/forbiddenlink/finance-quest-core/internal/cache"
	"github.com/forbiddenlink/finance-quest-core/internal/logging"
	"github.com/forbiddenlink/finance-quest-core/internal/persistence"
	"github.com/forbiddenlink/finance-quest-core/internal/review"
	"github.com/forbiddenlink/finance-quest-core/pkg/config"
)

var configPath = flag.String("config", "", "Path to configuration file (empty = defaults)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.InitializeFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	ctx := logging.WithCorrelationID(context.Background(), logging.NewCorrelationID())

	slot, closeSlot, err := openSlot(cfg.Persistence)
	if err != nil {
		logging.Fatal(ctx, logging.ComponentMain, logging.ActionStart, "Failed to open persistence backend", err)
		os.Exit(1)
	}
	defer closeSlot()

	logging.Info(ctx, logging.ComponentMain, logging.ActionStart, "questcore starting", map[string]interface{}{
		"backend":   cfg.Persistence.Backend,
		"namespace": cfg.Cache.Namespace,
		"command":   flag.Arg(0),
	})

	if err := run(ctx, cfg, slot, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, slot persistence.Slot, args []string) error {
	if len(args) == 0 {
		return errors.New("missing command (seed, due, review, stats, set, get)")
	}

	switch args[0] {
	case "seed":
		return runSeed(ctx, cfg, slot)
	case "due":
		return runDue(cfg, slot)
	case "review":
		if len(args) != 5 {
			return errors.New("usage: review <concept-id> <quality 0-5> <confidence 1-5> <seconds>")
		}
		return runReview(ctx, cfg, slot, args[1:])
	case "stats":
		return runStats(cfg, slot)
	case "set":
		if len(args) != 3 {
			return errors.New("usage: set <key> <value>")
		}
		return runSet(cfg, slot, args[1], args[2])
	case "get":
		if len(args) != 2 {
			return errors.New("usage: get <key>")
		}
		return runGet(cfg, slot, args[1])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// openSlot builds the configured persistence backend. The returned close
// function is a no-op for backends without resources to release.
func openSlot(cfg config.PersistenceConfig) (persistence.Slot, func(), error) {
	switch cfg.Backend {
	case "memory":
		return persistence.NewMemorySlot(), func() {}, nil
	case "file":
		slot, err := persistence.NewFileSlot(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return slot, func() {}, nil
	case "bolt":
		slot, err := persistence.OpenBoltSlot(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return slot, func() { slot.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown persistence backend: %s", cfg.Backend)
	}
}

func openCache(cfg *config.Config, slot persistence.Slot) *cache.Store[string] {
	return cache.New[string](cache.Config{
		Namespace:  cfg.Cache.Namespace,
		Version:    cfg.Cache.Version,
		TTL:        cfg.Cache.TTL,
		MaxEntries: cfg.Cache.MaxEntries,
		SlotKey:    cfg.Cache.SlotKey,
		// The CLI is short-lived; expired entries are swept on access.
	}, slot)
}

// seedConcepts is the starter curriculum used by the seed command.
var seedConcepts = []struct {
	id         string
	category   review.Category
	chapter    int
	importance review.Importance
}{
	{"budgeting-50-30-20", review.Lesson, 1, review.Critical},
	{"emergency-fund-sizing", review.Calculator, 2, review.Critical},
	{"compound-interest", review.Calculator, 3, review.High},
	{"bond-yield-to-maturity", review.Calculator, 7, review.Medium},
	{"mortgage-amortization", review.Calculator, 8, review.High},
	{"options-covered-call", review.Scenario, 12, review.Low},
	{"retirement-4-percent-rule", review.Quiz, 9, review.High},
	{"insurance-term-vs-whole", review.Quiz, 10, review.Medium},
}

func runSeed(ctx context.Context, cfg *config.Config, slot persistence.Slot) error {
	items, err := loadItems(cfg, slot)
	if err != nil {
		return err
	}
	if len(items) > 0 {
		fmt.Printf("Already seeded: %d concepts\n", len(items))
		return nil
	}

	now := time.Now()
	for _, c := range seedConcepts {
		items = append(items, review.NewItem(c.id, c.category, c.chapter, c.importance, now))
	}
	if err := saveItems(cfg, slot, items); err != nil {
		return err
	}

	logging.Info(ctx, logging.ComponentReview, logging.ActionStart, "Seeded review items", map[string]interface{}{
		"count": len(items),
	})
	fmt.Printf("Seeded %d concepts\n", len(items))
	return nil
}

func runDue(cfg *config.Config, slot persistence.Slot) error {
	items, err := loadItems(cfg, slot)
	if err != nil {
		return err
	}

	now := time.Now()
	due := review.DueForReview(items, now, cfg.Review.MaxDueItems)
	rec := review.Recommend(items, now)

	fmt.Printf("Recommendation [%s]: %s\n", rec.Priority, rec.Recommendation)
	for _, item := range due {
		overdue := now.Sub(item.NextReviewDate).Round(time.Hour)
		fmt.Printf("  %-30s %-10s importance=%-8s overdue=%v\n",
			item.ConceptID, item.Category, item.Importance, overdue)
	}
	return nil
}

func runReview(ctx context.Context, cfg *config.Config, slot persistence.Slot, args []string) error {
	conceptID := args[0]
	quality, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quality: %s", args[1])
	}
	confidence, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid confidence: %s", args[2])
	}
	seconds, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("invalid seconds: %s", args[3])
	}
	if quality < 0 || quality > 5 {
		return fmt.Errorf("quality must be 0-5, got %d", quality)
	}
	if confidence < 1 || confidence > 5 {
		return fmt.Errorf("confidence must be 1-5, got %d", confidence)
	}

	items, err := loadItems(cfg, slot)
	if err != nil {
		return err
	}

	now := time.Now()
	found := false
	for i, item := range items {
		if item.ConceptID != conceptID {
			continue
		}
		updated := review.Schedule(item, review.Response{
			Quality:    quality,
			TimeSpent:  seconds,
			Confidence: confidence,
		}, now)
		items[i] = updated
		found = true

		logging.Info(ctx, logging.ComponentReview, logging.ActionSchedule, "Concept reviewed", map[string]interface{}{
			"concept":     conceptID,
			"quality":     quality,
			"interval":    updated.Interval,
			"repetitions": updated.Repetitions,
			"ease_factor": updated.EaseFactor,
		})
		fmt.Printf("%s: next review in %d day(s) (ease %.2f, reps %d)\n",
			conceptID, updated.Interval, updated.EaseFactor, updated.Repetitions)
		break
	}
	if !found {
		return fmt.Errorf("unknown concept: %s", conceptID)
	}

	return saveItems(cfg, slot, items)
}

func runStats(cfg *config.Config, slot persistence.Slot) error {
	items, err := loadItems(cfg, slot)
	if err != nil {
		return err
	}
	retention := review.Retention(items, time.Now())

	store := openCache(cfg, slot)
	defer store.Close()
	cacheStats := store.Stats()

	fmt.Printf("Retention: %d concepts, %d mastered (%.0f%%), %d struggling (%.0f%%), %d due\n",
		retention.Total, retention.Mastered, retention.MasteryRate,
		retention.Struggling, retention.StrugglingRate, retention.DueToday)
	fmt.Printf("Cache:     %d entries, %d hits, %d misses, %d evictions\n",
		cacheStats.Size, cacheStats.Hits, cacheStats.Misses, cacheStats.Evictions)
	return nil
}

func runSet(cfg *config.Config, slot persistence.Slot, key, value string) error {
	store := openCache(cfg, slot)
	defer store.Close()

	store.Set(key, value, nil)
	fmt.Printf("OK\n")
	return nil
}

func runGet(cfg *config.Config, slot persistence.Slot, key string) error {
	store := openCache(cfg, slot)
	defer store.Close()

	value, ok := store.Get(key)
	if !ok {
		return fmt.Errorf("key not found: %s", key)
	}
	fmt.Println(value)
	return nil
}

// loadItems reads the review item collection from its slot. An empty slot
// means no concepts have been seeded yet.
func loadItems(cfg *config.Config, slot persistence.Slot) ([]review.Item, error) {
	data, err := slot.Read(cfg.Review.SlotKey)
	if err != nil {
		if errors.Is(err, persistence.ErrSlotEmpty) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load review items: %w", err)
	}
	var items []review.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse review items: %w", err)
	}
	return items, nil
}

func saveItems(cfg *config.Config, slot persistence.Slot, items []review.Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode review items: %w", err)
	}
	if err := slot.Write(cfg.Review.SlotKey, data); err != nil {
		return fmt.Errorf("failed to save review items: %w", err)
	}
	return nil
}
