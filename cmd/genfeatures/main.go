// Command genfeatures publishes synthetic area feature records, for local
// runs and load checks without the upstream ingestion stack.
//
// Usage:
//
//	go run ./cmd/genfeatures -brokers localhost:9092 -topic area-features -stormy nbhd-kukatpally,dist-warangal
//
// With -out, records are written as JSON lines instead of produced to Kafka.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
)

var defaultAreas = []struct {
	id, name string
	typ      domain.AreaType
}{
	{"dist-hyderabad", "Hyderabad", domain.AreaDistrict},
	{"dist-warangal", "Warangal", domain.AreaDistrict},
	{"dist-nizamabad", "Nizamabad", domain.AreaDistrict},
	{"dist-khammam", "Khammam", domain.AreaDistrict},
	{"nbhd-kukatpally", "Kukatpally", domain.AreaNeighbourhood},
	{"nbhd-ameerpet", "Ameerpet", domain.AreaNeighbourhood},
	{"nbhd-gachibowli", "Gachibowli", domain.AreaNeighbourhood},
	{"nbhd-uppal", "Uppal", domain.AreaNeighbourhood},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	brokers := flag.String("brokers", "localhost:9092", "comma-separated Kafka brokers")
	topic := flag.String("topic", "area-features", "features topic")
	stormy := flag.String("stormy", "", "comma-separated area ids that get storm signals")
	seed := flag.Int64("seed", 0, "random seed (0 means time-based)")
	out := flag.String("out", "", "write JSON lines to this file instead of Kafka")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	stormySet := map[string]bool{}
	for _, id := range strings.Split(*stormy, ",") {
		if id = strings.TrimSpace(id); id != "" {
			stormySet[id] = true
		}
	}

	now := time.Now().UTC()
	records := make([]domain.AreaFeatures, 0, len(defaultAreas))
	for _, a := range defaultAreas {
		records = append(records, makeArea(a.id, a.name, a.typ, now, stormySet[a.id], rng))
	}

	if *out != "" {
		return writeLines(*out, records)
	}
	return produce(*brokers, *topic, records)
}

func makeArea(id, name string, typ domain.AreaType, now time.Time, stormy bool, rng *rand.Rand) domain.AreaFeatures {
	f := domain.AreaFeatures{
		AreaID:     id,
		AreaName:   name,
		Type:       typ,
		ObservedAt: now,
	}

	baseProb := 5 + rng.Float64()*15
	basePrecip := 0.0
	if stormy {
		baseProb = 70 + rng.Float64()*25
		basePrecip = 2 + rng.Float64()*4

		eta := 30 + rng.Intn(50)
		duration := 30 + rng.Intn(60)
		precipHour := 3 + rng.Float64()*8
		f.Radar = domain.RadarFeatures{
			EtaMin:      &eta,
			DurationMin: &duration,
			Intensity:   domain.RadarHeavy,
		}
		f.Meteo = domain.MeteoFeatures{
			PrecipHour:  &precipHour,
			Probability: &baseProb,
			Intensity:   domain.RadarModerate,
		}
	} else {
		f.Radar = domain.RadarFeatures{Intensity: domain.RadarNone}
		f.Meteo = domain.MeteoFeatures{Probability: &baseProb, Intensity: domain.RadarNone}
	}

	start := now.Truncate(time.Hour)
	for i := 0; i < 12; i++ {
		f.Hourly = append(f.Hourly, domain.HourlySample{
			Time:        start.Add(time.Duration(i) * time.Hour),
			Probability: clampProb(baseProb + rng.Float64()*10 - 5),
			PrecipMm:    basePrecip * (0.5 + rng.Float64()),
		})
	}

	for i := 1; i <= 7; i++ {
		high := rng.Float64() * 8
		if stormy && i <= 2 {
			high = 15 + rng.Float64()*20
		}
		f.Week = append(f.Week, domain.DayForecast{
			Date:    start.AddDate(0, 0, i),
			MmLow:   high * 0.4,
			MmHigh:  high,
			MaxProb: clampProb(baseProb + rng.Float64()*20 - 10),
		})
	}
	return f
}

func clampProb(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func writeLines(path string, records []domain.AreaFeatures) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode %s: %w", r.AreaID, err)
		}
	}
	log.Printf("wrote %d records to %s", len(records), path)
	return nil
}

func produce(brokers, topic string, records []domain.AreaFeatures) error {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	defer w.Close()

	msgs := make([]kafkago.Message, 0, len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", r.AreaID, err)
		}
		msgs = append(msgs, kafkago.Message{Key: []byte(r.AreaID), Value: data})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("produce: %w", err)
	}
	log.Printf("produced %d records to %s", len(records), topic)
	return nil
}
