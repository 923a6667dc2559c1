// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package fitting recovers a shared face identity, per-view expression,
// pose, illumination and translation, and a shared appearance latent from
// several photographs of one subject by analysis-by-synthesis.
//
// The face model, texture GAN, renderer, recognition network, perceptual
// network and logger are supplied by the caller through Collaborators.
//
// # Basic Usage
//
//	backend := autodiff.New(cpu.New())
//	cfg := fitting.DefaultConfig()
//	cfg.Color = 1
//	cfg.Landmark = 1e-3
//
//	fitter, err := fitting.New(cfg, fitting.Collaborators{
//	    Backend:    backend,
//	    FaceModel:  model,
//	    TextureGAN: gan,
//	    Renderer:   renderer,
//	}, views, initCoeffs, nil)
//	if err != nil {
//	    return err
//	}
//	result, err := fitter.Run(ctx)
package fitting
