package utils

import (
	"context"
	"fmt"
	"math/rand"
)

// Word lists for generating room names
var adjectives = []string{
	"Swift", "Brave", "Clever", "Noble", "Mighty", "Silent", "Golden", "Silver",
	"Crystal", "Shadow", "Crimson", "Azure", "Cosmic", "Ancient", "Mystic", "Royal",
	"Fierce", "Gentle", "Wild", "Calm", "Bold", "Wise", "Quick", "Keen",
	"Storm", "Frost", "Iron", "Steel", "Stone", "Thunder", "Lunar", "Solar",
}

var nouns = []string{
	"Arena", "Forum", "Stage", "Hall", "Court", "Circle", "Summit", "Harbor",
	"Tower", "Citadel", "Garden", "Gallery", "Studio", "Lounge", "Plaza", "Den",
	"Dragon", "Phoenix", "Falcon", "Wolf", "Comet", "Nova", "Beacon", "Crown",
}

// NameTaken reports whether a room name is already in use.
type NameTaken func(ctx context.Context, name string) (bool, error)

// GenerateRoomName generates a room name in format "AdjectiveNoun123"
func GenerateRoomName() string {
	return randomName(1000)
}

// GenerateUniqueRoomName generates a room name that taken reports as free.
func GenerateUniqueRoomName(ctx context.Context, taken NameTaken) (string, error) {
	for _, space := range []int{1000, 100000} {
		for i := 0; i < 50; i++ {
			name := randomName(space)
			inUse, err := taken(ctx, name)
			if err != nil {
				return "", fmt.Errorf("check room name: %w", err)
			}
			if !inUse {
				return name, nil
			}
		}
	}
	return "", fmt.Errorf("failed to generate unique room name after many attempts")
}

func randomName(space int) string {
	adjective := adjectives[rand.Intn(len(adjectives))]
	noun := nouns[rand.Intn(len(nouns))]
	return fmt.Sprintf("%s%s%d", adjective, noun, rand.Intn(space))
}
