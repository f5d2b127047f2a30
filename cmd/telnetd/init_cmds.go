package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"telnetd/internal/assets"
)

var initCmd = &cobra.Command{
	Use:   "init [config_name]",
	Short: "Initialize a new telnetd configuration",
	Long:  "Creates a new configuration file and directory structure for telnetd, prompting for details.",
	Args:  cobra.MaximumNArgs(1),
	Run:   runInit,
}

type ConfigTemplateData struct {
	Address            string
	Port               int
	MaxConnections     int
	NegotiationTimeout string
	Metrics            bool
	MetricsAddress     string
}

func runInit(cmd *cobra.Command, args []string) {
	configName := "config"
	if len(args) > 0 {
		configName = args[0]
	}

	// Sanitized name for filename and paths
	safeName := sanitizeFilename(configName)

	data := ConfigTemplateData{
		Address:            "0.0.0.0",
		NegotiationTimeout: "2s",
		MetricsAddress:     "127.0.0.1:9323",
		Metrics:            true,
	}
	port := "2323"
	maxConnections := "10"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen Address").
				Description("Host name or IP, empty for all interfaces").
				Value(&data.Address).
				Validate(func(str string) error {
					if str != "" && !govalidator.IsHost(str) {
						return fmt.Errorf("not a valid host name or IP address")
					}
					return nil
				}),
			huh.NewInput().
				Title("Port").
				Value(&port).
				Validate(func(str string) error {
					if !govalidator.IsPort(str) {
						return fmt.Errorf("must be a port between 1 and 65535")
					}
					return nil
				}),
			huh.NewInput().
				Title("Max Connections").
				Value(&maxConnections).
				Validate(validateInt(1, 100000)),
			huh.NewInput().
				Title("Negotiation Timeout").
				Description("How long to wait for a client to answer an option request").
				Value(&data.NegotiationTimeout).
				Validate(func(str string) error {
					if _, err := time.ParseDuration(str); err != nil {
						return fmt.Errorf("expected a duration such as 2s or 500ms")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Serve metrics over HTTP?").
				Value(&data.Metrics),
			huh.NewInput().
				Title("Metrics Address").
				Value(&data.MetricsAddress).
				Validate(func(str string) error {
					if !govalidator.IsDialString(str) {
						return fmt.Errorf("expected host:port")
					}
					return nil
				}),
		),
	)

	err := form.Run()
	if err != nil {
		log.Fatal(err)
	}

	// Validated above
	data.Port, _ = strconv.Atoi(port)
	data.MaxConnections, _ = strconv.Atoi(maxConnections)

	configFile := safeName + ".yml"
	fmt.Printf("Initializing telnetd on %s:%d (config: %s)...\n", data.Address, data.Port, configFile)

	// Create directory structure
	dirs := []string{"/data", "/logs"}

	for _, dir := range dirs {
		path := safeName + dir
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("Error creating directory %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Created directory: %s\n", path)
	}

	// Read yml template from assets
	tmplContent, err := assets.FS.ReadFile("config.yml")
	if err != nil {
		fmt.Printf("Error reading embedded config template: %v\n", err)
		os.Exit(1)
	}

	// Replace "config/" with "safeName/" to match the created directories
	tmplContentStr := strings.ReplaceAll(string(tmplContent), "config/", safeName+"/")

	// Parse and execute template
	tmpl, err := template.New("config").Parse(tmplContentStr)
	if err != nil {
		fmt.Printf("Error parsing template: %v\n", err)
		os.Exit(1)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		fmt.Printf("Error executing template: %v\n", err)
		os.Exit(1)
	}

	// Write new config file
	if err := os.WriteFile(configFile, buf.Bytes(), 0644); err != nil {
		fmt.Printf("Error writing config file %s: %v\n", configFile, err)
		os.Exit(1)
	}

	fmt.Printf("Configuration file created: %s\n", configFile)
	fmt.Printf("Start the server with: telnetd -c %s\n", configFile)
}

func validateInt(lo, hi int) func(string) error {
	return func(str string) error {
		n, err := strconv.Atoi(str)
		if err != nil || n < lo || n > hi {
			return fmt.Errorf("must be a number between %d and %d", lo, hi)
		}
		return nil
	}
}

func sanitizeFilename(name string) string {
	name = strings.ToLower(name)
	// Replace spaces with underscores
	name = strings.ReplaceAll(name, " ", "_")
	// Remove non-alphanumeric characters (except underscores and hyphens)
	re := regexp.MustCompile(`[^a-z0-9_-]`)
	name = re.ReplaceAllString(name, "")
	return name
}
