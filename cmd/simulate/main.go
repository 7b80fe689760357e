package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/turnera/turnos-api/internal/agenda"
)

// The simulator hammers POST /turnos for a single date from many
// workers at once. With the per-date lock and the partial unique index
// in place, every slot must end up booked exactly once: the sum of
// successes and remaining free slots has to equal the full slot set.

type SimConfig struct {
	APIBaseURL string
	Workers    int
	Personas   int
	Fecha      string
}

type Metrics struct {
	Created  int64
	Conflict int64
	Rejected int64
	Error    int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	log.Printf("config: base_url=%s workers=%d personas=%d fecha=%s",
		cfg.APIBaseURL, cfg.Workers, cfg.Personas, cfg.Fecha)

	client := &http.Client{Timeout: 10 * time.Second}
	gofakeit.Seed(time.Now().UnixNano())

	personaIDs, err := crearPersonas(client, cfg)
	if err != nil {
		log.Fatalf("crear personas: %v", err)
	}
	log.Printf("created %d personas", len(personaIDs))

	horarios := agenda.HorariosValidos()

	var metrics Metrics
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, hora := range horarios {
				persona := personaIDs[rand.Intn(len(personaIDs))]
				status, err := reservar(client, cfg, persona, hora)
				switch {
				case err != nil:
					atomic.AddInt64(&metrics.Error, 1)
				case status == http.StatusCreated:
					atomic.AddInt64(&metrics.Created, 1)
				case status == http.StatusConflict:
					atomic.AddInt64(&metrics.Conflict, 1)
				default:
					atomic.AddInt64(&metrics.Rejected, 1)
				}
			}
		}()
	}
	wg.Wait()

	libres, err := disponibles(client, cfg)
	if err != nil {
		log.Fatalf("consultar disponibilidad: %v", err)
	}

	fmt.Println("=== booking race report ===")
	fmt.Printf("slots:     %d\n", len(horarios))
	fmt.Printf("created:   %d\n", metrics.Created)
	fmt.Printf("conflicts: %d\n", metrics.Conflict)
	fmt.Printf("rejected:  %d\n", metrics.Rejected)
	fmt.Printf("errors:    %d\n", metrics.Error)
	fmt.Printf("free now:  %d\n", len(libres))

	if int(metrics.Created)+len(libres) != len(horarios) {
		log.Fatalf("DOUBLE BOOKING DETECTED: created=%d free=%d slots=%d",
			metrics.Created, len(libres), len(horarios))
	}
	log.Println("no double bookings")
}

func loadConfig() SimConfig {
	return SimConfig{
		APIBaseURL: getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Workers:    getInt("SIM_WORKERS", 10),
		Personas:   getInt("SIM_PERSONAS", 20),
		Fecha:      getEnv("SIM_FECHA", time.Now().AddDate(0, 0, 1).Format(agenda.FechaLayout)),
	}
}

func crearPersonas(client *http.Client, cfg SimConfig) ([]int64, error) {
	ids := make([]int64, 0, cfg.Personas)
	for i := 0; i < cfg.Personas; i++ {
		body := map[string]any{
			"dni":              10_000_000 + rand.Int63n(40_000_000),
			"nombre":           gofakeit.Name(),
			"email":            gofakeit.Email(),
			"telefono":         1_100_000_000 + rand.Int63n(900_000_000),
			"fecha_nacimiento": "1990-05-14",
		}
		raw, _ := json.Marshal(body)

		resp, err := client.Post(cfg.APIBaseURL+"/personas", "application/json", bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusConflict {
			continue // identity collision, roll again
		}
		if resp.StatusCode != http.StatusCreated {
			return nil, fmt.Errorf("create persona: status %d: %s", resp.StatusCode, data)
		}

		var created struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(data, &created); err != nil {
			return nil, err
		}
		ids = append(ids, created.ID)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no personas created")
	}
	return ids, nil
}

func reservar(client *http.Client, cfg SimConfig, personaID int64, hora string) (int, error) {
	body := map[string]any{
		"fecha":      cfg.Fecha,
		"hora":       hora,
		"persona_id": personaID,
	}
	raw, _ := json.Marshal(body)

	resp, err := client.Post(cfg.APIBaseURL+"/turnos", "application/json", bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode, nil
}

func disponibles(client *http.Client, cfg SimConfig) ([]string, error) {
	resp, err := client.Get(cfg.APIBaseURL + "/turnos-disponibles?fecha=" + cfg.Fecha)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out struct {
		Horarios []string `json:"horarios_disponibles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Horarios, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
