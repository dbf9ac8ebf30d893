/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tieubaoca/rfi-processor-be/database"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
// Invoked bare it reinitializes the knowledge collection.
var rootCmd = &cobra.Command{
	Use:   "rfi-processor-be",
	Short: "Backend for RFI document processing",
	Long: `Processes uploaded RFI documents: splits them into chunks, extracts
the questions each chunk contains, answers them against the knowledge
collection and assembles the results into a downloadable report.

Run without a subcommand to (re)create the knowledge collection.`,
	Run: func(cmd *cobra.Command, args []string) {
		databaseURL, _ := cmd.Flags().GetString("database-url")
		text2vec := cmd.Flag("text2vec").Value.String()

		weaviateDb, err := database.NewWeaviateStore(database.WeaviateStoreConfig{
			Host:     databaseURL,
			APIKey:   os.Getenv("WEAVIATE_APIKEY"),
			Text2Vec: text2vec,
		})
		if err != nil {
			log.Fatalf("Failed to connect to Weaviate database: %v", err)
		}
		if err := weaviateDb.ReInit(); err != nil {
			log.Fatalf("Failed to reinitialize knowledge collection: %v", err)
		}
		fmt.Println("Knowledge collection reinitialized")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rfi-processor-be.yaml)")

	rootCmd.Flags().StringP("database-url", "d", "http://localhost:8080", "URL for the Weaviate database")
	rootCmd.Flags().StringP("text2vec", "t", "text2vec-transformers", "Text2Vec model for the knowledge collection")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".rfi-processor-be")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
