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

// Config holds the engine tunables.
type Config struct {
	// RegionSize is the default write intent bitmap region size in sectors.
	RegionSize uint32
	// StripeSize is the default stripe size in sectors.
	StripeSize uint32
	// MaxRaidDevices bounds the image count of md style arrays.
	MaxRaidDevices uint32
	// MaxMirrors bounds the image count of mirror style arrays.
	MaxMirrors uint32
	// MinReshapeSpace is the minimal out-of-place reshape space per device,
	// in sectors.
	MinReshapeSpace uint32
	// MaxRegions is the kernel limit of bitmap regions per device.
	MaxRegions uint64
}

func DefaultConfig() Config {
	return Config{
		RegionSize:      1024,
		StripeSize:      128,
		MaxRaidDevices:  64,
		MaxMirrors:      8,
		MinReshapeSpace: 2048,
		MaxRegions:      1 << 21,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RegionSize == 0 {
		c.RegionSize = d.RegionSize
	}
	if c.StripeSize == 0 {
		c.StripeSize = d.StripeSize
	}
	if c.MaxRaidDevices == 0 {
		c.MaxRaidDevices = d.MaxRaidDevices
	}
	if c.MaxMirrors == 0 {
		c.MaxMirrors = d.MaxMirrors
	}
	if c.MinReshapeSpace == 0 {
		c.MinReshapeSpace = d.MinReshapeSpace
	}
	if c.MaxRegions == 0 {
		c.MaxRegions = d.MaxRegions
	}
	return c
}
