// Package sku assigns and normalises main (product) and variant SKUs.
//
// Automatic main SKUs are max(existing numeric SKU)+1. The read and the later
// insert are not serialised, so two concurrent creations can pick the same
// value; the unique index rejects the second writer and nothing retries.
// Derived variant SKUs ({CATEGORY}-{SIZE}-{MAIN}) are not unique either: two
// variants of one product in the same size collide in the same way.
package sku

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/skuportal/inventory/models"
)

// ErrDuplicate is returned when a requested SKU is already held by another record.
var ErrDuplicate = errors.New("sku already in use")

const mainSKUWidth = 3

// Store is the lookup surface the Assigner needs.
type Store interface {
	MainSKUs(ctx context.Context) ([]string, error)
	LastProductID(ctx context.Context) (uint, error)
	MainSKUTaken(ctx context.Context, sku string, excludeID uint) (bool, error)
	VariantSKUTaken(ctx context.Context, sku string, excludeID uint) (bool, error)
}

type Assigner struct {
	store Store
}

func NewAssigner(store Store) *Assigner {
	return &Assigner{store: store}
}

// NormalizeMain trims s and zero-pads it to three digits when it is all digits.
func NormalizeMain(s string) string {
	s = strings.TrimSpace(s)
	if !isDigits(s) {
		return s
	}
	s = strings.TrimLeft(s, "0")
	if len(s) < mainSKUWidth {
		s = strings.Repeat("0", mainSKUWidth-len(s)) + s
	}
	return s
}

// NormalizeVariant upper-cases s and removes all whitespace.
func NormalizeVariant(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// DeriveVariant builds {first 4 chars of category}-{size}-{mainSKU}, with
// ITEM and NA standing in for an empty category or size.
func DeriveVariant(category, size, mainSKU string) string {
	prefix := strings.ToUpper(firstRunes(strings.TrimSpace(category), 4))
	if prefix == "" {
		prefix = "ITEM"
	}
	size = strings.ToUpper(strings.TrimSpace(size))
	if size == "" {
		size = "NA"
	}
	return fmt.Sprintf("%s-%s-%s", prefix, size, mainSKU)
}

// MainSKU returns the main SKU to store for a product. A requested value is
// normalised and checked against every product except excludeID; an empty one
// is generated.
func (a *Assigner) MainSKU(ctx context.Context, requested string, excludeID uint) (string, error) {
	sku := NormalizeMain(requested)
	if sku == "" {
		return a.nextMainSKU(ctx)
	}
	taken, err := a.store.MainSKUTaken(ctx, sku, excludeID)
	if err != nil {
		return "", err
	}
	if taken {
		return "", fmt.Errorf("%w: main sku %q", ErrDuplicate, sku)
	}
	return sku, nil
}

// VariantSKU returns the variant SKU to store. A requested value is normalised
// and checked against every variant except excludeID; an empty one is derived
// from the parent product and size without a uniqueness check.
func (a *Assigner) VariantSKU(ctx context.Context, requested string, product *models.Product, size string, excludeID uint) (string, error) {
	sku := NormalizeVariant(requested)
	if sku == "" {
		return DeriveVariant(product.Category, size, product.MainSKU), nil
	}
	taken, err := a.store.VariantSKUTaken(ctx, sku, excludeID)
	if err != nil {
		return "", err
	}
	if taken {
		return "", fmt.Errorf("%w: variant sku %q", ErrDuplicate, sku)
	}
	return sku, nil
}

func (a *Assigner) nextMainSKU(ctx context.Context) (string, error) {
	skus, err := a.store.MainSKUs(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list main skus: %w", err)
	}

	highest, found := 0, false
	for _, s := range skus {
		if !isDigits(s) {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		if !found || n > highest {
			highest, found = n, true
		}
	}

	next := highest + 1
	if !found {
		lastID, err := a.store.LastProductID(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to read last product id: %w", err)
		}
		next = int(lastID) + 1
	}
	return fmt.Sprintf("%0*d", mainSKUWidth, next), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
