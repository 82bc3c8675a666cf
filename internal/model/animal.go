package model

import (
	"encoding/json"
	"strings"
	"time"
)

// AnimalType classifies an animal.
type AnimalType string

const (
	AnimalFish       AnimalType = "fish"
	AnimalMollusk    AnimalType = "mollusk"
	AnimalCrustacean AnimalType = "crustacean"
)

var animalTypeAliases = map[string]AnimalType{
	"fish":       AnimalFish,
	"pesce":      AnimalFish,
	"mollusk":    AnimalMollusk,
	"mollusco":   AnimalMollusk,
	"crustacean": AnimalCrustacean,
	"crostaceo":  AnimalCrustacean,
}

// ParseAnimalType accepts English and Italian names.
func ParseAnimalType(s string) (AnimalType, error) {
	if t, ok := animalTypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", invalid("type", "unknown animal type %q", s)
}

func (t *AnimalType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAnimalType(s)
	if err != nil {
		// Unknown types render as fish.
		parsed = AnimalFish
	}
	*t = parsed
	return nil
}

// AnimalStatus is the health state of an animal group.
type AnimalStatus string

const (
	StatusAlive    AnimalStatus = "alive"
	StatusDead     AnimalStatus = "dead"
	StatusSick     AnimalStatus = "sick"
	StatusPregnant AnimalStatus = "pregnant"
)

var animalStatusAliases = map[string]AnimalStatus{
	"alive":    StatusAlive,
	"vivo":     StatusAlive,
	"dead":     StatusDead,
	"morto":    StatusDead,
	"sick":     StatusSick,
	"malato":   StatusSick,
	"pregnant": StatusPregnant,
	"gravida":  StatusPregnant,
}

// ParseAnimalStatus accepts English and Italian names.
func ParseAnimalStatus(s string) (AnimalStatus, error) {
	if st, ok := animalStatusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", invalid("status", "unknown animal status %q", s)
}

func (st *AnimalStatus) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAnimalStatus(s)
	if err != nil {
		parsed = StatusAlive
	}
	*st = parsed
	return nil
}

// Animal is a group of animals of one species.
type Animal struct {
	ID           ID           `json:"id"`
	Species      string       `json:"species"`
	Type         AnimalType   `json:"type"`
	Count        int          `json:"count"`
	Males        int          `json:"males"`
	Females      int          `json:"females"`
	PurchaseDate string       `json:"purchaseDate"`
	Status       AnimalStatus `json:"status"`
}

// AnimalInput is the raw form of a new animal entry.
type AnimalInput struct {
	Species      string
	Type         string
	Count        int
	Males        int
	Females      int
	PurchaseDate string
	Status       string
}

// NewAnimal validates input. Count defaults to 1, type to fish, status to
// alive and the purchase date to today.
func NewAnimal(in AnimalInput, now time.Time) (Animal, error) {
	species := strings.TrimSpace(in.Species)
	if species == "" {
		return Animal{}, invalid("species", "species is required")
	}
	count := in.Count
	if count <= 0 {
		count = 1
	}
	if in.Males < 0 || in.Females < 0 {
		return Animal{}, invalid("males", "counts cannot be negative")
	}
	if in.Males+in.Females > count {
		return Animal{}, invalid("count", "males and females cannot exceed the total count")
	}
	typ := AnimalFish
	if in.Type != "" {
		t, err := ParseAnimalType(in.Type)
		if err != nil {
			return Animal{}, err
		}
		typ = t
	}
	status := StatusAlive
	if in.Status != "" {
		st, err := ParseAnimalStatus(in.Status)
		if err != nil {
			return Animal{}, err
		}
		status = st
	}
	date := strings.TrimSpace(in.PurchaseDate)
	if date == "" {
		date = now.Format(DateLayout)
	} else if _, err := time.Parse(DateLayout, date); err != nil {
		return Animal{}, invalid("purchaseDate", "date must be YYYY-MM-DD")
	}
	return Animal{
		ID:           NewID(),
		Species:      species,
		Type:         typ,
		Count:        count,
		Males:        in.Males,
		Females:      in.Females,
		PurchaseDate: date,
		Status:       status,
	}, nil
}
