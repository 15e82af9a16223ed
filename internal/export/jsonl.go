package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ppiankov/watchtower/internal/model"
)

// WriteClaimsJSONL writes claims one JSON record per line, the append-only
// log format consumed by downstream exporters.
func WriteClaimsJSONL(w io.Writer, claims []model.Claim) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, c := range claims {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encode claim %s: %w", c.ID, err)
		}
	}
	return bw.Flush()
}
