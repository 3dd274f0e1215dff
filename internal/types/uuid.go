package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex contract_01HZX5N2Q4VY3T0J6W8P9R2K7M
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	UUID_PREFIX_CONTRACT       = "contract"
	UUID_PREFIX_CHANGE_HISTORY = "chg"
	UUID_PREFIX_CYCLE          = "cycle"
)
