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

package superblock

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/bits"
	"os"

	"github.com/ncw/directio"
	"golang.org/x/sys/unix"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog"
)

// On disk layout of the leading part of the dm-raid superblock.
const (
	magicOffset          = 0
	featuresOffset       = 4
	failedDevicesOffset  = 24
	flagsOffset          = 60
	extendedFailedOffset = 120
	extendedFailedWords  = 3
	extendedSize         = 148

	featureV190 = 0x1

	// BufferSize covers 4K native devices.
	BufferSize = 4096
)

var magic = []byte("DmRd")

// Superblock is a parsed dm-raid superblock buffer.
type Superblock struct {
	buf []byte
}

// Parse validates the signature of buf, which must hold at least the
// extended superblock.
func Parse(buf []byte) (*Superblock, error) {
	if len(buf) < extendedSize {
		return nil, status.Errorf(codes.InvalidArgument, "superblock buffer of %d bytes is too short", len(buf))
	}
	if !bytes.Equal(buf[magicOffset:magicOffset+len(magic)], magic) {
		return nil, status.Errorf(codes.NotFound, "No RAID signature")
	}
	return &Superblock{buf: buf}, nil
}

// Extended reports the 1.9.0 superblock format.
func (sb *Superblock) Extended() bool {
	return binary.LittleEndian.Uint32(sb.buf[featuresOffset:])&featureV190 != 0
}

// size returns the number of meaningful bytes.
func (sb *Superblock) size() int {
	if sb.Extended() {
		return extendedSize
	}
	return flagsOffset
}

func (sb *Superblock) failedWords() []int {
	offsets := []int{failedDevicesOffset}
	if sb.Extended() {
		for i := 0; i < extendedFailedWords; i++ {
			offsets = append(offsets, extendedFailedOffset+8*i)
		}
	}
	return offsets
}

// FailedDevices counts the devices flagged as failed.
func (sb *Superblock) FailedDevices() uint32 {
	var n int
	for _, off := range sb.failedWords() {
		n += bits.OnesCount64(binary.LittleEndian.Uint64(sb.buf[off:]))
	}
	return uint32(n)
}

// ClearFailedDevices resets the failed device bits and zeroes the buffer
// past the superblock.
func (sb *Superblock) ClearFailedDevices() {
	for _, off := range sb.failedWords() {
		binary.LittleEndian.PutUint64(sb.buf[off:], 0)
	}
	tail := sb.buf[sb.size():]
	for i := range tail {
		tail[i] = 0
	}
}

// device is the block device interface used by the superblock operations.
type device interface {
	io.ReaderAt
	io.WriterAt
}

func read(dev device) (*Superblock, error) {
	buf := directio.AlignedBlock(BufferSize)
	if _, err := dev.ReadAt(buf, 0); err != nil {
		return nil, status.Errorf(codes.Unavailable, "failed to read superblock: %v", err)
	}
	return Parse(buf)
}

// countOrClear reads the superblock of dev and optionally clears it.
func countOrClear(dev device, clear bool) (uint32, error) {
	sb, err := read(dev)
	if err != nil {
		return 0, err
	}
	failed := sb.FailedDevices()
	if clear {
		sb.ClearFailedDevices()
		if _, err := dev.WriteAt(sb.buf, 0); err != nil {
			return 0, status.Errorf(codes.Unavailable, "failed to write superblock: %v", err)
		}
	}
	return failed, nil
}

func open(path string) (*os.File, error) {
	f, err := directio.OpenFile(path, os.O_RDWR|os.O_EXCL, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, status.Errorf(codes.NotFound, "failed to open RAID metadata device %s: %v", path, err)
		}
		return nil, status.Errorf(codes.Unavailable, "failed to open RAID metadata device %s: %v", path, err)
	}
	return f, nil
}

// CountFailedDevices returns the failed device count recorded on the
// metadata device at path.
func CountFailedDevices(path string) (uint32, error) {
	f, err := open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := countOrClear(f, false)
	if err != nil {
		klog.Errorf("Superblock of %s: %v", path, err)
		return 0, err
	}
	klog.V(2).Infof("%s records %d failed device(s)", path, n)
	return n, nil
}

// ClearFailedDevices resets the failed devices recorded on the metadata
// device at path and returns how many there were.
func ClearFailedDevices(path string) (uint32, error) {
	f, err := open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := countOrClear(f, true)
	if err != nil {
		klog.Errorf("Superblock of %s: %v", path, err)
		return 0, err
	}
	if err := unix.Fdatasync(int(f.Fd())); err != nil {
		return 0, status.Errorf(codes.Unavailable, "failed to sync %s: %v", path, err)
	}
	klog.Infof("Cleared %d failed device(s) on %s", n, path)
	return n, nil
}
