package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reunite",
	Short: "Face-matching service for missing-person registries",
	Long: `Reunite matches submitted face photos against a registry of
missing-person records by comparing face embeddings. It serves the public
submission API, the police case and match-review API, and the batch tools
for embedding imports.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
