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

// Package metrics counts raid operations in a textfile collector friendly
// registry.
package metrics

import (
	"time"

	"github.com/aleofreddi/lvmraid/pkg/raid"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc/status"
	"k8s.io/klog"
)

const namespace = "lvmraid"

type Recorder struct {
	reg        *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	images     *prometheus.GaugeVec
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Number of raid operations, partitioned by operation, source and target layout and outcome.",
			},
			[]string{"operation", "from", "to", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Distribution of the length of time to run a raid operation.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		images: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "lv_images",
				Help:      "Number of data images of a logical volume after the last operation.",
			},
			[]string{"lv", "type"},
		),
	}
	r.reg.MustRegister(r.operations, r.duration, r.images)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Observe records the outcome of operation op started at start, turning
// lv from layout from into layout to.
func (r *Recorder) Observe(op, from, to string, start time.Time, err error) {
	r.operations.WithLabelValues(op, from, to, status.Code(err).String()).Inc()
	r.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// SetLayout records the current layout of lv.
func (r *Recorder) SetLayout(lv *raid.LogicalVolume) {
	seg := lv.FirstSegment()
	if seg == nil {
		return
	}
	r.images.WithLabelValues(lv.String(), seg.Type.Name).Set(float64(raid.ImageCount(lv)))
}

// WriteFile exports the registry in text format to path.
func (r *Recorder) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		klog.Warningf("Failed to write metrics to %s: %v", path, err)
		return err
	}
	return nil
}
