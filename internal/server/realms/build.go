package realms

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"github.com/dmitrijs2005/realmd/internal/common"
	"github.com/dmitrijs2005/realmd/internal/server/models"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/builds"
)

// BuildTable is the immutable set of client builds the login server
// accepts, ordered by build number.
type BuildTable struct {
	builds []models.BuildInfo
}

// LoadBuildTable reads every known build once.
func LoadBuildTable(ctx context.Context, repo builds.Repository) (*BuildTable, error) {
	rows, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load builds: %w", err)
	}

	t := &BuildTable{builds: make([]models.BuildInfo, 0, len(rows))}
	for _, row := range rows {
		info, err := buildInfoFromRow(row)
		if err != nil {
			return nil, err
		}
		t.builds = append(t.builds, info)
	}
	sort.Slice(t.builds, func(i, j int) bool { return t.builds[i].Build < t.builds[j].Build })
	return t, nil
}

func buildInfoFromRow(row builds.Row) (models.BuildInfo, error) {
	var info models.BuildInfo

	for _, f := range []struct {
		name string
		v    int64
		dst  *uint32
	}{
		{"build", row.Build, &info.Build},
		{"major_version", row.MajorVersion, &info.MajorVersion},
		{"minor_version", row.MinorVersion, &info.MinorVersion},
		{"bugfix_version", row.BugfixVersion, &info.BugfixVersion},
	} {
		if f.v < 0 || f.v > math.MaxUint32 {
			return info, fmt.Errorf("%w: build_info %s %d out of range", common.ErrCorruptRow, f.name, f.v)
		}
		*f.dst = uint32(f.v)
	}

	if hotfix := row.HotfixVersion.String; row.HotfixVersion.Valid && len(hotfix) < len(info.HotfixVersion) {
		copy(info.HotfixVersion[:], hotfix)
	}

	decodeSeed(row.WinChecksum.String, &info.WindowsHash)
	decodeSeed(row.MacChecksum.String, &info.MacHash)

	return info, nil
}

// decodeSeed fills dst only from a complete hex seed; anything else leaves
// it zeroed, which disables the checksum check for that platform.
func decodeSeed(s string, dst *[models.ChecksumSeedLength]byte) {
	if len(s) != models.ChecksumSeedLength*2 {
		return
	}
	var buf [models.ChecksumSeedLength]byte
	if _, err := hex.Decode(buf[:], []byte(s)); err != nil {
		return
	}
	*dst = buf
}

// Get returns the build with the given number.
func (t *BuildTable) Get(build uint32) (models.BuildInfo, bool) {
	i := sort.Search(len(t.builds), func(i int) bool { return t.builds[i].Build >= build })
	if i < len(t.builds) && t.builds[i].Build == build {
		return t.builds[i], true
	}
	return models.BuildInfo{}, false
}

// All returns a copy of every build in ascending order.
func (t *BuildTable) All() []models.BuildInfo {
	return append([]models.BuildInfo(nil), t.builds...)
}
