// Package fitting implements joint multi-view analysis-by-synthesis fitting.
//
// Given V photographs of one subject, a Fitter recovers a shared identity
// block, per-view expression, pose, illumination and translation
// coefficients, and a shared appearance latent w, by rendering a synthetic
// face and minimizing a weighted multi-term loss with Adam.
//
// The face model, texture GAN, renderer, recognition network, perceptual
// network and logger are collaborators supplied by the caller (see
// collaborators.go). The package owns only the optimization: how the
// variables are packed (Layout, ParameterState), how they are scheduled
// (parameter groups and the cosine rampdown), how the collaborators are
// driven (Pipeline) and how the loss terms are combined (Aggregator).
//
// Basic usage:
//
//	f, err := fitting.New(cfg, collab, views, initCoeffs, nil)
//	if err != nil {
//	    return err
//	}
//	result, err := f.Run(ctx)
package fitting
