package sphere

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// MaxOrder bounds the tessellation depth (Nside = 2^24, ~0.013 arcsec cells).
// Up to this order 12*Nside^2 stays below 2^53, so cell codes convert to
// float64 exactly and the polar ring latitudes 1-i^2*4/Npix stay distinct.
const MaxOrder = 24

// Healpix is the RING-ordered HEALPix tessellation at a fixed order.
// Cells are equal-area; cell codes run from 0 to NumPixels()-1 ring by ring
// from the north pole, so every ring is a contiguous code range.
type Healpix struct {
	order int
	nside int64
	npix  int64
	ncap  int64 // cells in the north polar cap
}

// NewHealpix returns the tessellation at the given order, clamped to [0, MaxOrder].
func NewHealpix(order int) Healpix {
	if order < 0 {
		order = 0
	}
	if order > MaxOrder {
		order = MaxOrder
	}
	nside := int64(1) << uint(order)
	return Healpix{
		order: order,
		nside: nside,
		npix:  12 * nside * nside,
		ncap:  2 * nside * (nside - 1),
	}
}

// Order returns the tessellation order.
func (h Healpix) Order() int { return h.order }

// Nside returns the number of cell divisions along a base-pixel side.
func (h Healpix) Nside() int64 { return h.nside }

// NumPixels returns the number of cells covering the sphere.
func (h Healpix) NumPixels() int64 { return h.npix }

// NumRings returns the number of iso-latitude rings.
func (h Healpix) NumRings() int64 { return 4*h.nside - 1 }

// PixelSize returns the mean cell size in radians for the given order.
func PixelSize(order int) float64 {
	return math.Sqrt(math.Pi/3) / float64(int64(1)<<uint(order))
}

// OrderForResolution returns the coarsest order whose mean cell size does
// not exceed res (radians), capped at MaxOrder.
func OrderForResolution(res float64) int {
	for order := 0; order < MaxOrder; order++ {
		if PixelSize(order) <= res {
			return order
		}
	}
	return MaxOrder
}

// Ang2Pix returns the cell code containing the unit vector v.
func (h Healpix) Ang2Pix(v r3.Vec) int64 {
	z := v.Z
	za := math.Abs(z)
	tt := math.Atan2(v.Y, v.X) / (math.Pi / 2)
	if tt < 0 {
		tt += 4
	}
	if tt >= 4 {
		tt -= 4
	}
	nside := float64(h.nside)

	if za <= 2.0/3 {
		nl4 := 4 * h.nside
		temp1 := nside * (0.5 + tt)
		temp2 := nside * z * 0.75
		jp := int64(temp1 - temp2) // ascending edge line
		jm := int64(temp1 + temp2) // descending edge line
		ir := h.nside + 1 + jp - jm
		if ir < 1 {
			ir = 1
		} else if ir > 2*h.nside+1 {
			ir = 2*h.nside + 1
		}
		kshift := 1 - (ir & 1)
		t1 := jp + jm - h.nside + kshift + 1 + 2*nl4
		ip := (t1 >> 1) % nl4
		return h.ncap + (ir-1)*nl4 + ip
	}

	tp := tt - math.Floor(tt)
	var tmp float64
	if za < 0.99 {
		tmp = nside * math.Sqrt(3*(1-za))
	} else {
		sth := math.Hypot(v.X, v.Y)
		tmp = nside * sth / math.Sqrt((1+za)/3)
	}
	jp := int64(tp * tmp)
	jm := int64((1 - tp) * tmp)
	ir := jp + jm + 1 // ring counted from the closest pole
	if ir > h.nside {
		ir = h.nside
	}
	ip := int64(tt * float64(ir))
	if ip >= 4*ir {
		ip = 4*ir - 1
	}
	if z > 0 {
		return 2*ir*(ir-1) + ip
	}
	return h.npix - 2*ir*(ir+1) + ip
}

// Pix2Vec returns the unit vector of the centre of cell pix.
func (h Healpix) Pix2Vec(pix int64) r3.Vec {
	z, phi := h.pix2ang(pix)
	st := math.Sqrt(math.Max(0, 1-z*z))
	return r3.Vec{X: st * math.Cos(phi), Y: st * math.Sin(phi), Z: z}
}

func (h Healpix) pix2ang(pix int64) (z, phi float64) {
	fact2 := 4 / float64(h.npix)
	switch {
	case pix < h.ncap:
		iring := (1 + isqrt(1+2*pix)) >> 1
		iphi := (pix + 1) - 2*iring*(iring-1)
		z = 1 - float64(iring*iring)*fact2
		phi = (float64(iphi) - 0.5) * (math.Pi / 2) / float64(iring)
	case pix < h.npix-h.ncap:
		nl4 := 4 * h.nside
		ip := pix - h.ncap
		tmp := ip / nl4
		iring := tmp + h.nside
		iphi := ip - nl4*tmp + 1
		fodd := 0.5
		if (iring+h.nside)&1 == 1 {
			fodd = 1
		}
		z = float64(2*h.nside-iring) * 2 / (3 * float64(h.nside))
		phi = (float64(iphi) - fodd) * math.Pi / (2 * float64(h.nside))
	default:
		ip := h.npix - pix
		iring := (1 + isqrt(2*ip-1)) >> 1
		iphi := 4*iring + 1 - (ip - 2*iring*(iring-1))
		z = -1 + float64(iring*iring)*fact2
		phi = (float64(iphi) - 0.5) * (math.Pi / 2) / float64(iring)
	}
	return z, phi
}

// ring describes one iso-latitude ring: its cells are first..first+n-1 and
// cell j is centred at longitude (j+shift)*2*pi/n.
type ring struct {
	first int64
	n     int64
	z     float64
	shift float64
}

// ringInfo returns ring i, 1 <= i <= NumRings(), numbered from the north pole.
func (h Healpix) ringInfo(i int64) ring {
	ns := h.nside
	fact2 := 4 / float64(h.npix)
	switch {
	case i < ns:
		return ring{first: 2 * i * (i - 1), n: 4 * i, z: 1 - float64(i*i)*fact2, shift: 0.5}
	case i <= 3*ns:
		shift := 0.5
		if (i+ns)&1 == 1 {
			shift = 0
		}
		return ring{
			first: h.ncap + (i-ns)*4*ns,
			n:     4 * ns,
			z:     float64(2*ns-i) * 2 / (3 * float64(ns)),
			shift: shift,
		}
	default:
		r := 4*ns - i
		return ring{first: h.npix - 2*r*(r+1), n: 4 * r, z: -1 + float64(r*r)*fact2, shift: 0.5}
	}
}

// ringAbove returns the number of the ring immediately north of z,
// 0 when z lies north of the first ring.
func (h Healpix) ringAbove(z float64) int64 {
	az := math.Abs(z)
	if az <= 2.0/3 {
		return int64(float64(h.nside) * (2 - 1.5*z))
	}
	iring := int64(float64(h.nside) * math.Sqrt(3*(1-az)))
	if z > 0 {
		return iring
	}
	return 4*h.nside - iring - 1
}

// discRanges calls fn with every contiguous cell-code range whose cell
// centres lie within angle radius of the unit vector c. Ranges are reported
// ring by ring; a ring crossing longitude 0 contributes two ranges.
func (h Healpix) discRanges(c r3.Vec, radius float64, fn func(lo, hi int64)) {
	nrings := h.NumRings()
	if radius >= math.Pi {
		fn(0, h.npix-1)
		return
	}

	latC := math.Atan2(c.Z, math.Hypot(c.X, c.Y))
	zmax := math.Sin(math.Min(latC+radius, math.Pi/2))
	zmin := math.Sin(math.Max(latC-radius, -math.Pi/2))
	// One extra ring each side covers rounding in ringAbove near the poles.
	iLo := h.ringAbove(zmax) - 1
	iHi := h.ringAbove(zmin) + 2
	if iLo < 1 {
		iLo = 1
	}
	if iHi > nrings {
		iHi = nrings
	}

	phiC := math.Atan2(c.Y, c.X)
	sa, ca := math.Sin(latC), math.Cos(latC)
	cosR := math.Cos(radius)

	for i := iLo; i <= iHi; i++ {
		ri := h.ringInfo(i)
		sb := ri.z
		cb := math.Sqrt(math.Max(0, 1-sb*sb))
		num := cosR - sa*sb
		den := ca * cb

		full := false
		var dphi float64
		if den < 1e-12 {
			// Centre or ring on a pole: take the whole ring unless even its
			// nearest point, at cos = sa*sb + den, is outside the disc.
			if num > den {
				continue
			}
			full = true
		} else {
			x := num / den
			if x > 1 {
				continue
			}
			if x <= -1 {
				full = true
			} else {
				dphi = math.Acos(x)
			}
		}

		if full {
			fn(ri.first, ri.first+ri.n-1)
			continue
		}

		step := 2 * math.Pi / float64(ri.n)
		jlo := int64(math.Ceil((phiC-dphi)/step - ri.shift))
		jhi := int64(math.Floor((phiC+dphi)/step - ri.shift))
		if jhi < jlo {
			continue
		}
		if jhi-jlo+1 >= ri.n {
			fn(ri.first, ri.first+ri.n-1)
			continue
		}
		span := jhi - jlo
		jlo = ((jlo % ri.n) + ri.n) % ri.n
		jhi = jlo + span
		if jhi < ri.n {
			fn(ri.first+jlo, ri.first+jhi)
			continue
		}
		fn(ri.first+jlo, ri.first+ri.n-1)
		fn(ri.first, ri.first+jhi-ri.n)
	}
}

func isqrt(x int64) int64 {
	if x <= 0 {
		return 0
	}
	s := int64(math.Sqrt(float64(x)))
	for s*s > x {
		s--
	}
	for (s+1)*(s+1) <= x {
		s++
	}
	return s
}
