// internal/cli/platform.go
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omni-pm/omni/pkg/engine"
)

var platformCmd = &cobra.Command{
	Use:   "platform",
	Short: "Show the detected OS, architecture and usable backends",
	RunE:  runPlatform,
}

func runPlatform(cmd *cobra.Command, args []string) error {
	eng, err := engine.New(config, engine.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer eng.Close()

	p, err := eng.Platform(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("OS:        %s\n", p.OS)
	fmt.Printf("Arch:      %s\n", p.Arch)
	if len(p.Available) == 0 {
		fmt.Println("Backends:  none available")
		return nil
	}
	fmt.Printf("Backends:  %s\n", strings.Join(p.Available, ", "))
	fmt.Printf("Preferred: %s\n", p.Preferred)
	return nil
}
