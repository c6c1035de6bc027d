package service

import (
	"sort"
	"strings"
	"sync"

	"swift/internal/domain"
	"swift/internal/logger"
)

// baseFares lists the fixed fares from the CIT terminal.
var baseFares = map[string]float64{
	"Ayala Center":                   75.00,
	"Banawa":                         70.00,
	"Banilad":                        110.00,
	"Basak San Nicolas":              30.00,
	"Bulacao":                        70.00,
	"Calamba":                        40.00,
	"Capitol Site":                   65.00,
	"Carbon":                         45.00,
	"Carreta":                        75.00,
	"Cebu Doctors Hospital V Rama":   60.00,
	"Cebu South Bus Terminal (CSBT)": 25.00,
	"Colon":                          45.00,
	"Duljo Fatima":                   30.00,
	"Ermita":                         45.00,
	"Fuente Osmeña":                  60.00,
	"Guadalupe":                      75.00,
	"Hipodromo":                      80.00,
	"Il Corso (SRP)":                 70.00,
	"Inayawan":                       60.00,
	"IT Park":                        95.00,
	"Kamputhaw":                      70.00,
	"Labangon":                       40.00,
	"Lahug":                          100.00,
	"Mabolo":                         85.00,
	"Mambaling":                      20.00,
	"Pahina Central":                 35.00,
	"Pahina San Nicolas":             35.00,
	"Pardo":                          55.00,
	"Parian":                         50.00,
	"Pier Area":                      55.00,
	"Pooc":                           115.00,
	"Punta Princesa":                 35.00,
	"Quiot Pardo":                    45.00,
	"Robinsons Galleria":             65.00,
	"San Antonio":                    40.00,
	"San Nicolas Bukid":              35.00,
	"San Nicolas Proper":             35.00,
	"Sambag I":                       45.00,
	"Sambag II":                      45.00,
	"SM City Cebu":                   85.00,
	"SM Seaside":                     80.00,
	"Sto. Niño Basilica":             50.00,
	"Taboan Market":                  40.00,
	"Tabunok":                        85.00,
	"Talamban":                       140.00,
	"Talisay":                        110.00,
	"Tisa":                           40.00,
}

type fareEntry struct {
	name string
	base float64
}

// FareService prices trips from the static fare table and the current surge.
type FareService struct {
	log   *logger.Logger
	table map[string]fareEntry

	mu    sync.RWMutex
	surge float64
}

// NewFareService creates a fare engine. An out-of-range initial surge falls back to 1.0.
func NewFareService(initialSurge float64, log *logger.Logger) *FareService {
	table := make(map[string]fareEntry, len(baseFares))
	for name, base := range baseFares {
		table[strings.ToLower(name)] = fareEntry{name: name, base: base}
	}

	s := &FareService{log: log, table: table, surge: 1.0}
	if err := s.SetSurge(initialSurge); err != nil {
		log.Warn(logger.Entry{
			Action:     "surge_config_ignored",
			Message:    "initial surge out of range, using 1.0",
			Additional: map[string]any{"surge": initialSurge},
		})
	}
	return s
}

// Destination is one fare table row with the fare at the current surge.
type Destination struct {
	Name     string  `json:"name"`
	BaseFare float64 `json:"base_fare"`
	Fare     float64 `json:"fare"`
}

// Quote is the fare preview shown before booking.
type Quote struct {
	Destination    string  `json:"destination"`
	BaseFare       float64 `json:"base_fare"`
	Surge          float64 `json:"surge"`
	SurgeActive    bool    `json:"surge_active"`
	Fare           float64 `json:"fare"`
	Commission     float64 `json:"commission"`
	DriverEarnings float64 `json:"driver_earnings"`
}

// Lookup resolves a destination case-insensitively to its canonical name and base fare.
func (s *FareService) Lookup(destination string) (string, float64, bool) {
	e, ok := s.table[strings.ToLower(strings.TrimSpace(destination))]
	if !ok {
		return "", 0, false
	}
	return e.name, e.base, true
}

// CalculateFare returns base fare times surge rounded to two decimals.
// Unknown destinations cost 0 and are logged.
func (s *FareService) CalculateFare(destination string) float64 {
	_, base, ok := s.Lookup(destination)
	if !ok {
		s.log.Warn(logger.Entry{
			Action:     "fare_unknown_destination",
			Message:    "destination not in fare table",
			Additional: map[string]any{"destination": destination},
		})
		return 0
	}
	return domain.RoundMoney(base * s.Surge())
}

// Quote prices a destination for preview.
func (s *FareService) Quote(destination string) (*Quote, error) {
	name, base, ok := s.Lookup(destination)
	if !ok {
		return nil, ErrUnknownDestination
	}

	surge := s.Surge()
	fare := domain.RoundMoney(base * surge)
	commission, earnings := domain.SplitFare(fare)

	return &Quote{
		Destination:    name,
		BaseFare:       base,
		Surge:          surge,
		SurgeActive:    surge > 1.0,
		Fare:           fare,
		Commission:     commission,
		DriverEarnings: earnings,
	}, nil
}

// Destinations returns the fare table sorted by name.
func (s *FareService) Destinations() []Destination {
	surge := s.Surge()

	out := make([]Destination, 0, len(s.table))
	for _, e := range s.table {
		out = append(out, Destination{
			Name:     e.name,
			BaseFare: e.base,
			Fare:     domain.RoundMoney(e.base * surge),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
