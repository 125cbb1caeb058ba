package hex

// Directions for axial neighbors, counter-clockwise starting east.
var Directions = []Axial{
	{+1, 0}, {+1, -1}, {0, -1}, {-1, 0}, {-1, +1}, {0, +1},
}

// Neighbor returns the adjacent cell of a in direction dir (0..5, wrapping).
func Neighbor(a Axial, dir int) Axial {
	return a.Add(Directions[((dir%6)+6)%6])
}

// Ring returns the axial coordinates at exact distance k from center c,
// starting from direction 4 and proceeding counter-clockwise.
// If k==0, returns [c].
func Ring(c Axial, k int) []Axial {
	if k <= 0 {
		return []Axial{c}
	}
	res := make([]Axial, 0, 6*k)
	cur := c.Add(Directions[4].Mul(k))
	for side := 0; side < 6; side++ {
		for step := 0; step < k; step++ {
			res = append(res, cur)
			cur = cur.Add(Directions[side])
		}
	}
	return res
}

// Disk returns all axial coordinates at distance <= r from center c, ordered
// by ring and then along each ring.
func Disk(c Axial, r int) []Axial {
	if r < 0 {
		return nil
	}
	res := make([]Axial, 0, 1+3*r*(r+1))
	for k := 0; k <= r; k++ {
		res = append(res, Ring(c, k)...)
	}
	return res
}
