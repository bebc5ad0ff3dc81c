// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package raid

import (
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SegmentFlag identifies the family and sub-layout of a segment type.
type SegmentFlag uint64

const (
	SegStriped SegmentFlag = 1 << iota
	SegMirror
	SegError
	SegRaid
	SegAreasMirrored
	SegRaid0
	SegRaid0Meta
	SegRaid1
	SegRaid01
	SegRaid10Near
	SegRaid10Far
	SegRaid10Offset
	SegRaid4
	SegRaid5LA
	SegRaid5LS
	SegRaid5RA
	SegRaid5RS
	SegRaid5N
	SegRaid6ZR
	SegRaid6NR
	SegRaid6NC
	SegRaid6LA6
	SegRaid6LS6
	SegRaid6RA6
	SegRaid6RS6
	SegRaid6N6
)

const (
	SegAnyRaid0  = SegRaid0 | SegRaid0Meta
	SegAnyRaid10 = SegRaid10Near | SegRaid10Far | SegRaid10Offset
	SegAnyRaid5  = SegRaid5LA | SegRaid5LS | SegRaid5RA | SegRaid5RS | SegRaid5N
	SegAnyRaid6  = SegRaid6ZR | SegRaid6NR | SegRaid6NC | SegRaid6LA6 | SegRaid6LS6 | SegRaid6RA6 | SegRaid6RS6 | SegRaid6N6
)

// SegmentType describes a mapping target layout.
type SegmentType struct {
	Name       string
	Flags      SegmentFlag
	ParityDevs uint32
}

func (t *SegmentType) String() string {
	if t == nil {
		return "linear"
	}
	return t.Name
}

func (t *SegmentType) has(f SegmentFlag) bool {
	return t != nil && t.Flags&f != 0
}

func (t *SegmentType) IsStriped() bool      { return t.has(SegStriped) }
func (t *SegmentType) IsMirror() bool       { return t.has(SegMirror) }
func (t *SegmentType) IsError() bool        { return t.has(SegError) }
func (t *SegmentType) IsRaid() bool         { return t.has(SegRaid) }
func (t *SegmentType) IsMirrored() bool     { return t.has(SegAreasMirrored) }
func (t *SegmentType) IsAnyRaid0() bool     { return t.has(SegAnyRaid0) }
func (t *SegmentType) IsRaid0() bool        { return t.has(SegRaid0) }
func (t *SegmentType) IsRaid0Meta() bool    { return t.has(SegRaid0Meta) }
func (t *SegmentType) IsRaid1() bool        { return t.has(SegRaid1) }
func (t *SegmentType) IsRaid01() bool       { return t.has(SegRaid01) }
func (t *SegmentType) IsAnyRaid10() bool    { return t.has(SegAnyRaid10) }
func (t *SegmentType) IsRaid10Near() bool   { return t.has(SegRaid10Near) }
func (t *SegmentType) IsRaid10Far() bool    { return t.has(SegRaid10Far) }
func (t *SegmentType) IsRaid10Offset() bool { return t.has(SegRaid10Offset) }
func (t *SegmentType) IsRaid4() bool        { return t.has(SegRaid4) }
func (t *SegmentType) IsAnyRaid5() bool     { return t.has(SegAnyRaid5) }
func (t *SegmentType) IsRaid5N() bool       { return t.has(SegRaid5N) }
func (t *SegmentType) IsAnyRaid6() bool     { return t.has(SegAnyRaid6) }
func (t *SegmentType) IsRaid6N6() bool      { return t.has(SegRaid6N6) }

// IsStripedRaid reports raid layouts striping data over images.
func (t *SegmentType) IsStripedRaid() bool {
	return t.IsRaid() && !t.IsRaid1() && !t.IsRaid01()
}

// IsReshapable reports layouts whose kernel target supports out-of-place reshaping.
func (t *SegmentType) IsReshapable() bool {
	return t.IsRaid4() || t.IsAnyRaid5() || t.IsAnyRaid6() || t.IsAnyRaid10()
}

// IsParityRaid reports raid4, raid5 and raid6 layouts.
func (t *SegmentType) IsParityRaid() bool {
	return t.IsRaid4() || t.IsAnyRaid5() || t.IsAnyRaid6()
}

var (
	Striped      = &SegmentType{Name: "striped", Flags: SegStriped}
	Mirror       = &SegmentType{Name: "mirror", Flags: SegMirror | SegAreasMirrored}
	ErrorTarget  = &SegmentType{Name: "error", Flags: SegError}
	Raid0        = raidType("raid0", 0, SegRaid0)
	Raid0Meta    = raidType("raid0_meta", 0, SegRaid0Meta)
	Raid1        = raidType("raid1", 0, SegRaid1|SegAreasMirrored)
	Raid01       = raidType("raid01", 0, SegRaid01|SegAreasMirrored)
	Raid10Near   = raidType("raid10_near", 0, SegRaid10Near|SegAreasMirrored)
	Raid10Far    = raidType("raid10_far", 0, SegRaid10Far|SegAreasMirrored)
	Raid10Offset = raidType("raid10_offset", 0, SegRaid10Offset|SegAreasMirrored)
	Raid4        = raidType("raid4", 1, SegRaid4)
	Raid5N       = raidType("raid5_n", 1, SegRaid5N)
	Raid5LA      = raidType("raid5_la", 1, SegRaid5LA)
	Raid5LS      = raidType("raid5_ls", 1, SegRaid5LS)
	Raid5RA      = raidType("raid5_ra", 1, SegRaid5RA)
	Raid5RS      = raidType("raid5_rs", 1, SegRaid5RS)
	Raid6NC      = raidType("raid6_nc", 2, SegRaid6NC)
	Raid6NR      = raidType("raid6_nr", 2, SegRaid6NR)
	Raid6ZR      = raidType("raid6_zr", 2, SegRaid6ZR)
	Raid6LA6     = raidType("raid6_la_6", 2, SegRaid6LA6)
	Raid6LS6     = raidType("raid6_ls_6", 2, SegRaid6LS6)
	Raid6RA6     = raidType("raid6_ra_6", 2, SegRaid6RA6)
	Raid6RS6     = raidType("raid6_rs_6", 2, SegRaid6RS6)
	Raid6N6      = raidType("raid6_n_6", 2, SegRaid6N6)

	// Aliases resolve to their canonical layout.
	Raid10 = Raid10Near
	Raid5  = Raid5LS
	Raid6  = Raid6ZR
)

var segmentTypes = []*SegmentType{
	Striped, Mirror, ErrorTarget,
	Raid0, Raid0Meta, Raid1, Raid01,
	Raid10Near, Raid10Far, Raid10Offset,
	Raid4, Raid5N, Raid5LA, Raid5LS, Raid5RA, Raid5RS,
	Raid6NC, Raid6NR, Raid6ZR, Raid6LA6, Raid6LS6, Raid6RA6, Raid6RS6, Raid6N6,
}

var segmentTypeAliases = map[string]*SegmentType{
	"linear": Striped,
	"raid10": Raid10,
	"raid5":  Raid5,
	"raid6":  Raid6,
}

func raidType(name string, parity uint32, flags SegmentFlag) *SegmentType {
	return &SegmentType{Name: name, Flags: SegRaid | flags, ParityDevs: parity}
}

// LookupSegmentType resolves a segment type by name or alias.
func LookupSegmentType(name string) (*SegmentType, error) {
	if t, ok := segmentTypeAliases[name]; ok {
		return t, nil
	}
	for _, t := range segmentTypes {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, status.Errorf(codes.InvalidArgument, "unknown segment type %q", name)
}

// segmentTypeFromFlag returns the canonical type carrying flag f.
func segmentTypeFromFlag(f SegmentFlag) *SegmentType {
	for _, t := range segmentTypes {
		if t.Flags&f == f && t.Flags&^(SegRaid|SegAreasMirrored)&^f == 0 {
			return t
		}
	}
	return nil
}

// segtypeName returns "linear" for a striped type with one image.
func segtypeName(t *SegmentType, imageCount uint32) string {
	if t == nil || (t.IsStriped() && imageCount == 1) {
		return "linear"
	}
	return t.Name
}

// strncmpEqual has the semantics of strncmp(a, b, n) == 0.
func strncmpEqual(a, b string, n int) bool {
	for i := 0; i < n; i++ {
		var ca, cb byte
		if i < len(a) {
			ca = a[i]
		}
		if i < len(b) {
			cb = b[i]
		}
		if ca != cb {
			return false
		}
		if ca == 0 {
			return true
		}
	}
	return true
}

// isSameLevel compares raid levels by name prefix.
func isSameLevel(t1, t2 *SegmentType) bool {
	if strncmpEqual(t1.Name, t2.Name, 6) {
		return true
	}
	return strncmpEqual(t1.Name, t2.Name, 5)
}

// displayAlias returns the alias a canonical type is known by, if any.
func displayAlias(t *SegmentType) string {
	switch {
	case t == Raid5LS:
		return "raid5"
	case t == Raid6ZR:
		return "raid6"
	case t.IsAnyRaid10() && !t.IsRaid10Near():
		return "raid10"
	}
	return ""
}

var raid5ToRaid6 = [][2]*SegmentType{
	{Raid5LS, Raid6LS6},
	{Raid5LA, Raid6LA6},
	{Raid5RS, Raid6RS6},
	{Raid5RA, Raid6RA6},
	{Raid5N, Raid6N6},
}

func raid5To6(t *SegmentType) *SegmentType {
	for _, p := range raid5ToRaid6 {
		if p[0] == t {
			return p[1]
		}
	}
	return nil
}

func raid6To5(t *SegmentType) *SegmentType {
	for _, p := range raid5ToRaid6 {
		if p[1] == t {
			return p[0]
		}
	}
	return nil
}

func isRaid6Rotating(t *SegmentType) bool {
	return t == Raid6ZR || t == Raid6NR || t == Raid6NC
}

func typeNames(types []*SegmentType) string {
	var b strings.Builder
	for i, t := range types {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.Name)
	}
	return b.String()
}
