package crs

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var authorityRe = regexp.MustCompile(`AUTHORITY\["EPSG",\s*"?(\d+)"?\]\s*\]\s*$`)

// FromPRJ identifies the reference system described by the WKT contents of
// a shapefile .prj sidecar.
func FromPRJ(wkt string) (CRS, error) {
	s := strings.ToUpper(strings.TrimSpace(wkt))
	if s == "" {
		return CRS{}, fmt.Errorf("%w: empty projection definition", ErrUnsupportedCRS)
	}

	// A trailing AUTHORITY belongs to the outermost definition.
	if m := authorityRe.FindStringSubmatch(s); m != nil {
		code, err := strconv.Atoi(m[1])
		if err == nil {
			if c, err := Lookup(code); err == nil {
				return c, nil
			}
		}
	}

	switch {
	case strings.HasPrefix(s, "GEOGCS"):
		return WGS84, nil
	case strings.HasPrefix(s, "PROJCS") && strings.Contains(s, "LONG_ISLAND"):
		if strings.Contains(s, "FEET") || strings.Contains(s, "FOOT") || strings.Contains(s, "FTUS") {
			return NYLongIslandFeet, nil
		}
		return NYLongIslandMeters, nil
	}

	name := s
	if len(name) > 64 {
		name = name[:64] + "..."
	}
	return CRS{}, fmt.Errorf("%w: %s", ErrUnsupportedCRS, name)
}

// ReadPRJ reads the .prj sidecar that belongs to a shapefile path. The
// returned flag is false when no sidecar exists.
func ReadPRJ(shpPath string) (CRS, bool, error) {
	prjPath := strings.TrimSuffix(shpPath, ".shp") + ".prj"
	if strings.HasSuffix(shpPath, ".SHP") {
		prjPath = strings.TrimSuffix(shpPath, ".SHP") + ".PRJ"
	}

	data, err := os.ReadFile(prjPath)
	if os.IsNotExist(err) {
		return CRS{}, false, nil
	}
	if err != nil {
		return CRS{}, false, fmt.Errorf("failed to read projection file: %w", err)
	}

	c, err := FromPRJ(string(data))
	if err != nil {
		return CRS{}, true, err
	}
	return c, true, nil
}
