package wcs

import "math"

// CAR maps pixels linearly onto longitude and latitude. Longitudes are
// unwrapped around the reference longitude, so a map may straddle 0/360.
type CAR struct {
	p Params
}

func (c *CAR) PixelToSky(col, row float64) (lon, lat float64, ok bool) {
	lon = c.p.CRVal[0] + (col-c.p.CRPix[0])*c.p.CDelt[0]
	lat = c.p.CRVal[1] + (row-c.p.CRPix[1])*c.p.CDelt[1]
	if math.Abs(lat) > 90 {
		return 0, 0, false
	}
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	return lon, lat, true
}

func (c *CAR) SkyToPixel(lon, lat float64) (col, row float64, ok bool) {
	if !finite(lon) || !finite(lat) || math.Abs(lat) > 90 {
		return 0, 0, false
	}
	col = c.p.CRPix[0] + wrap180(lon-c.p.CRVal[0])/c.p.CDelt[0]
	row = c.p.CRPix[1] + (lat-c.p.CRVal[1])/c.p.CDelt[1]
	return col, row, true
}
