// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package models builds CIFAR-style residual networks.
//
// # Basic Usage
//
//	cfg := models.DefaultConfig()
//	cfg.Dataset = "cifar10"
//	model, err := models.ResNet(cfg) // resnet20_v2: (32, 32, 3) -> (10,)
//
// Version 1 uses post-activation blocks, version 2 pre-activation blocks.
// Alias "WRN-16-8" builds a wide ResNet. HeadClasses adds one output per entry.
package models

import (
	"github.com/born-ml/trainkit/internal/models"
	"github.com/born-ml/trainkit/nn"
)

// Config describes a ResNet. Start from DefaultConfig.
type Config = models.Config

// HeadConfig configures a classification head.
type HeadConfig = models.HeadConfig

// Pooling modes for the classifier head.
const (
	PoolingAvg = models.PoolingAvg
	PoolingMax = models.PoolingMax
	PoolingCat = models.PoolingCat
)

// Errors returned for invalid configurations.
var (
	ErrMissingInputShape = models.ErrMissingInputShape
	ErrMissingClasses    = models.ErrMissingClasses
	ErrUnknownAlias      = models.ErrUnknownAlias
	ErrUnknownVersion    = models.ErrUnknownVersion
	ErrUnknownPooling    = models.ErrUnknownPooling
)

// DefaultConfig returns the defaults for a CIFAR-style ResNet v2.
func DefaultConfig() Config {
	return models.DefaultConfig()
}

// Bool returns a pointer to v, for the optional Config fields.
func Bool(v bool) *bool { return models.Bool(v) }

// Float64 returns a pointer to v, for the optional Config fields.
func Float64(v float64) *float64 { return models.Float64(v) }

// ResNet builds the network described by cfg.
func ResNet(cfg Config) (*nn.Model, error) {
	return models.ResNet(cfg)
}

// Classifier appends global pooling and one logits layer per class count to x.
func Classifier(g *nn.Graph, x *nn.Node, cfg HeadConfig) ([]*nn.Node, error) {
	return models.Classifier(g, x, cfg)
}
