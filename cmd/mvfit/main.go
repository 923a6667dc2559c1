// Command mvfit runs a multi-view face fitting session and writes the fitted
// coefficients and appearance latents as a SafeTensors artifact.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/mvfit/internal/autodiff"
	"github.com/born-ml/mvfit/internal/backend/cpu"
	"github.com/born-ml/mvfit/internal/fitting"
	"github.com/born-ml/mvfit/internal/synth"
	"github.com/born-ml/mvfit/internal/tblog"
)

const version = "v0.1.0"

// ResultFile is the artifact name inside the run directory.
const ResultFile = "result.safetensors"

func main() {
	configPath := flag.String("config", "", "YAML fitting configuration (defaults to the built-in synthetic preset)")
	useSynthetic := flag.Bool("synthetic", false, "Fit a generated synthetic scene")
	problemPath := flag.String("problem", "", "SafeTensors problem file (views and initial coefficients)")
	exportPath := flag.String("export-problem", "", "Write the synthetic problem to this file and exit")
	views := flag.Int("views", 2, "Number of views in the synthetic scene")
	size := flag.Int("size", 32, "Image size of the synthetic scene")
	seed := flag.Int64("seed", 1, "Seed of the synthetic collaborators and scene")
	noise := flag.Float64("noise", 1, "Perturbation scale of the synthetic initial guess")
	steps := flag.Int("steps", 0, "Override total_step (0 = keep config)")
	outDir := flag.String("out", "./runs", "Directory receiving one subdirectory per run")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mvfit %s\n", version)
		return
	}

	if err := run(options{
		configPath:  *configPath,
		synthetic:   *useSynthetic,
		problemPath: *problemPath,
		exportPath:  *exportPath,
		scene:       synth.SceneConfig{Views: *views, ImageSize: *size, Seed: *seed, Noise: *noise},
		steps:       *steps,
		outDir:      *outDir,
	}); err != nil {
		log.Fatalf("mvfit: %v", err)
	}
}

type options struct {
	configPath  string
	synthetic   bool
	problemPath string
	exportPath  string
	scene       synth.SceneConfig
	steps       int
	outDir      string
}

func run(opts options) error {
	if !opts.synthetic && opts.problemPath == "" {
		fmt.Println("Nothing to fit.")
		fmt.Println("\nRun with -synthetic to fit a generated scene:")
		fmt.Println("  mvfit -synthetic -views 3 -steps 200")
		fmt.Println("\nor with -problem to fit views exported earlier:")
		fmt.Println("  mvfit -synthetic -export-problem problem.safetensors")
		fmt.Println("  mvfit -problem problem.safetensors")
		return errors.New("no input selected")
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.steps > 0 {
		cfg.TotalStep = opts.steps
	}

	scene, err := synth.NewScene(opts.scene)
	if err != nil {
		return fmt.Errorf("failed to build scene: %w", err)
	}
	problem := &fitting.Problem{Views: scene.Views, InitCoeffs: scene.InitCoeffs, InitZ: scene.InitZ}

	if opts.exportPath != "" {
		if err := fitting.SaveProblem(opts.exportPath, problem); err != nil {
			return fmt.Errorf("failed to export problem: %w", err)
		}
		log.Printf("wrote %d-view problem to %s", len(problem.Views), opts.exportPath)
		return nil
	}

	backend := autodiff.New(cpu.New())
	if opts.problemPath != "" {
		problem, err = fitting.LoadProblem(opts.problemPath, backend)
		if err != nil {
			return fmt.Errorf("failed to load problem: %w", err)
		}
		if got := problem.Views[0].Image.Dim(-1); got != opts.scene.ImageSize {
			return fmt.Errorf("problem images are %dpx but the collaborators render %dpx; pass -size %d",
				got, opts.scene.ImageSize, got)
		}
	}

	runID := uuid.New()
	dir := filepath.Join(opts.outDir, runID.String())
	writer, err := tblog.NewWriter(dir, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := writer.Close(); err != nil {
			log.Printf("log writer: %v", err)
		}
	}()

	log.Printf("run %s: %d views, %d steps, logging to %s", runID, len(problem.Views), cfg.TotalStep, dir)

	fitter, err := fitting.New(cfg, scene.Collaborators(backend, writer), problem.Views, problem.InitCoeffs, problem.InitZ)
	if err != nil {
		return fmt.Errorf("failed to create fitter: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, err := fitter.Run(ctx)
	if err != nil {
		return fmt.Errorf("fitting stopped after %d steps: %w", fitter.StepCount(), err)
	}
	log.Printf("fitted %d steps in %v", fitter.StepCount(), time.Since(start).Round(time.Millisecond))

	resultPath := filepath.Join(dir, ResultFile)
	meta := map[string]string{
		"run_id": runID.String(),
		"views":  strconv.Itoa(len(problem.Views)),
		"steps":  strconv.Itoa(fitter.StepCount()),
	}
	if err := fitting.SaveResult(resultPath, result, meta); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	log.Printf("saved %s", resultPath)
	return nil
}

// loadConfig reads path, or returns the synthetic preset when path is empty.
func loadConfig(path string) (fitting.Config, error) {
	if path != "" {
		return fitting.LoadConfig(path)
	}
	cfg := fitting.DefaultConfig()
	cfg.Feat = 0.2
	cfg.Color = 1
	cfg.VGG = 0.1
	cfg.RegID = 1e-4
	cfg.RegExp = 1e-4
	cfg.RegGamma = 1e-3
	cfg.RegLatent = 0.01
	cfg.Landmark = 1e-3
	return cfg, cfg.Validate()
}
