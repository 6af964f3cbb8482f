package initcmd

import (
	"go.uber.org/zap"

	"github.com/broady/fluidgen/config"
)

type Cmd struct {
	Dir string `arg:"" optional:"" help:"Project root to write fluid.config.json into." default:"." type:"existingdir"`
}

func (c *Cmd) Run(log *zap.Logger) error {
	path, err := config.WriteDefault(c.Dir)
	if err != nil {
		return err
	}
	log.Info("wrote default config", zap.String("path", path))
	return nil
}
