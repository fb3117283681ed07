package utils

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/zeebo/xxh3"

	models "github.com/phillip/charity-campaigns-go/models"
)

// CampaignsETag derives a weak validator for a campaign list or a single
// campaign. Any change to updated_at, raised, the donation count or the
// owner summary alters the value.
func CampaignsETag(campaigns []models.Campaign) string {
	h := xxh3.New()
	var num [8]byte
	writeUint := func(v uint64) {
		binary.BigEndian.PutUint64(num[:], v)
		_, _ = h.Write(num[:])
	}
	writeString := func(s string) {
		writeUint(uint64(len(s)))
		_, _ = h.WriteString(s)
	}
	for _, c := range campaigns {
		_, _ = h.Write(c.ID[:])
		writeUint(uint64(c.UpdatedAt.UnixNano()))
		writeUint(math.Float64bits(c.Raised))
		writeUint(uint64(len(c.Donations)))
		if c.Owner != nil {
			writeString(c.Owner.Name)
			writeString(c.Owner.Email)
			writeString(c.Owner.ContactNumber)
		} else {
			writeUint(0)
		}
	}
	return fmt.Sprintf(`W/"%016x-%d"`, h.Sum64(), len(campaigns))
}
