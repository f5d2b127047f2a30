package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	"telnetd/internal/config"
	"telnetd/internal/network/telnet"
)

var _ = Describe("Config", func() {
	var dir string

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Describe("Load", func() {
		It("merges includes under the including file", func() {
			write("base.yml", `
maxConnections: 5
listeners:
  telnet:
    enabled: true
    port: 2323
`)
			path := write("main.yml", `
include: [base.yml, main.yml]
maxConnections: 50
paths:
  data: ${TELNETD_TEST_DATA}
`)
			GinkgoT().Setenv("TELNETD_TEST_DATA", "/var/lib/telnetd")

			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.MaxConnections).To(Equal(50))
			Expect(cfg.Listeners.Telnet.Enabled).To(BeTrue())
			Expect(cfg.Listeners.Telnet.Addr()).To(Equal(":2323"))
			Expect(cfg.Paths.Data).To(Equal("/var/lib/telnetd"))
			Expect(cfg.LoadedFiles).To(HaveLen(2))
		})

		It("reports missing includes", func() {
			path := write("main.yml", "include: [nope.yml]\n")
			_, err := config.Load(path)
			Expect(err).To(MatchError(ContainSubstring("failed to load included config")))
		})
	})

	Describe("OptionPolicy", func() {
		It("accepts scalar and object forms", func() {
			var section config.TelnetConfig
			Expect(yaml.Unmarshal([]byte(`
options:
  echo: accept
  naws: { remote: accept }
  "200": refuse
`), &section)).To(Succeed())

			Expect(section.Options["echo"]).To(Equal(config.OptionPolicy{Local: "accept", Remote: "accept"}))
			Expect(section.Options["naws"]).To(Equal(config.OptionPolicy{Remote: "accept"}))
			Expect(section.Options["200"]).To(Equal(config.OptionPolicy{Local: "refuse", Remote: "refuse"}))
		})
	})

	Describe("Protocol", func() {
		It("falls back to the defaults", func() {
			cfg, err := config.TelnetConfig{}.Protocol()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.NegotiationTimeout).To(Equal(telnet.DefaultConfig().NegotiationTimeout))
			Expect(cfg.Options.Supports(telnet.Echo, telnet.Local)).To(BeTrue())
			Expect(cfg.InitialRequests).To(HaveLen(4))
		})

		It("builds the option table and initial requests", func() {
			var section config.TelnetConfig
			Expect(yaml.Unmarshal([]byte(`
negotiationTimeout: 500ms
maxSubnegotiationSize: 64
passThroughCommands: false
options:
  echo: { local: accept }
  terminal-type: { remote: accept }
initial:
  - will echo
  - option: ttype
    direction: remote
`), &section)).To(Succeed())

			cfg, err := section.Protocol()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.NegotiationTimeout).To(Equal(500 * time.Millisecond))
			Expect(cfg.MaxSubnegotiationSize).To(Equal(64))
			Expect(cfg.PassThroughCommands).To(BeFalse())
			Expect(cfg.TranslateEditCommands).To(BeTrue())
			Expect(cfg.Options.Supports(telnet.Echo, telnet.Local)).To(BeTrue())
			Expect(cfg.Options.Supports(telnet.Echo, telnet.Remote)).To(BeFalse())
			Expect(cfg.Options.Supports(telnet.SGA, telnet.Local)).To(BeFalse())
			Expect(cfg.InitialRequests).To(Equal([]telnet.InitialRequest{
				{Option: telnet.Echo, Direction: telnet.Local},
				{Option: telnet.TType, Direction: telnet.Remote},
			}))
		})

		It("allows turning the initial requests off", func() {
			var section config.TelnetConfig
			Expect(yaml.Unmarshal([]byte("initial: []\n"), &section)).To(Succeed())
			cfg, err := section.Protocol()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.InitialRequests).To(BeEmpty())
		})

		DescribeTable("rejects bad sections",
			func(doc string, message string) {
				var section config.TelnetConfig
				err := yaml.Unmarshal([]byte(doc), &section)
				if err == nil {
					_, err = section.Protocol()
				}
				Expect(err).To(MatchError(ContainSubstring(message)))
			},
			Entry("unknown option", "options: { frobnicate: accept }", "unknown telnet option"),
			Entry("unknown policy", "options: { echo: maybe }", "unknown policy"),
			Entry("bad shorthand", "initial: [echo]", "expected"),
			Entry("unknown verb", "initial: [wont echo]", "unknown verb"),
			Entry("unsupported initial", "options: { echo: refuse }\ninitial: [will echo]", "not an accepted option"),
		)
	})
})
