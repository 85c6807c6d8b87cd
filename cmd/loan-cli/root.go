package main

import (
	"github.com/spf13/cobra"

	"loan-approval/internal/classifier"
	"loan-approval/internal/common/config"
	"loan-approval/internal/common/logger"
	"loan-approval/internal/evaluation"
	"loan-approval/internal/features"
	"loan-approval/pkg/registry"
)

const app = "loan-cli"

// Actual version can be specified in build command.
var version = "unknown"

type rootOptions struct {
	configFile  string
	modelPath   string
	modelFormat string
	debug       bool
	json        bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          app,
		Short:        "loan-cli scores loan applicants against the approval model",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is configs/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.modelPath, "model", "", "model artifact, overrides model.path")
	cmd.PersistentFlags().StringVar(&opts.modelFormat, "format", config.FormatLinear, "model format used with --model: linear or onnx")
	cmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "verbose/debug output")
	cmd.PersistentFlags().BoolVarP(&opts.json, "json", "j", false, "json format for logging")

	cmd.AddCommand(
		newEvaluateCmd(opts),
		newFormCmd(opts),
		newSchemaCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func (o *rootOptions) logger() logger.Logger {
	level, format := "warn", "console"
	if o.debug {
		level = "debug"
	}
	if o.json {
		format = "json"
	}
	return logger.NewZapAdapter(logger.NewWithOutput(level, format, "stderr"))
}

// modelConfig resolves the model section from --model or the config file.
func (o *rootOptions) modelConfig() (config.ModelConfig, error) {
	if o.modelPath != "" {
		mc := config.ModelConfig{Path: o.modelPath, Format: o.modelFormat}
		mc.Onnx.InputName = "float_input"
		mc.Onnx.OutputName = "label"
		return mc, nil
	}

	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFromFile(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return config.ModelConfig{}, err
	}
	return cfg.Model, nil
}

// loadService builds the in-process pipeline. The caller closes the model.
func (o *rootOptions) loadService() (*evaluation.Service, classifier.Classifier, error) {
	mc, err := o.modelConfig()
	if err != nil {
		return nil, nil, err
	}

	schemaVersion := mc.SchemaVersion
	if schemaVersion == "" {
		schemaVersion = registry.DefaultVersion
	}
	schema, err := features.LoadSchema(schemaVersion)
	if err != nil {
		return nil, nil, err
	}

	model, err := classifier.Load(mc, schema)
	if err != nil {
		return nil, nil, err
	}
	return evaluation.NewService(features.NewEncoder(schema), model, o.logger()), model, nil
}
