package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lowmess/vitals/config"
)

func ReadConfig(w io.Writer, configPath string) *config.Config {
	dir, fileName := filepath.Split(configPath)
	if dir == "" {
		dir = "."
	}
	conf, err := config.Read(os.DirFS(dir), fileName)
	if err != nil {
		fmt.Fprintf(w, "reading config: %s\n", err)
		return nil
	}
	return conf
}
