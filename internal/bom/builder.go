package bom

import (
	"io"
	"runtime/debug"
	"strings"
	"time"

	"github.com/CZERTAINLY/blastweb/internal/model"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"
)

const (
	PropPlatform = "blastweb:platform"
	PropPrefix   = "blastweb:prefix"
	PropLabel    = "blastweb:label"
)

var version string

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		version = "unknown"
	} else {
		version = info.Main.Version
	}
}

// Version of the running blastweb binary
func Version() string {
	return version
}

// Builder is a builder pattern for a CycloneDX BOM structure
type Builder struct {
	components []cdx.Component
}

func NewBuilder() *Builder {
	return &Builder{
		// the schema does not allow a null components array
		components: []cdx.Component{},
	}
}

// AppendInstallations adds one application component per installation
func (b *Builder) AppendInstallations(installs ...model.Installation) *Builder {
	for _, inst := range installs {
		b.components = append(b.components, Component(inst))
	}
	return b
}

// Component describes the blastn binary of an installation
func Component(inst model.Installation) cdx.Component {
	props := []cdx.Property{
		{Name: PropPlatform, Value: inst.Platform},
		{Name: PropLabel, Value: inst.Label()},
	}
	if inst.Prefixed() {
		props = append(props, cdx.Property{Name: PropPrefix, Value: strings.Join(inst.Prefix, " ")})
	}
	return cdx.Component{
		BOMRef:     "blastn/" + strings.ToLower(inst.Platform) + "@" + inst.Version,
		Type:       cdx.ComponentTypeApplication,
		Name:       "blastn",
		Version:    inst.Version,
		Properties: &props,
	}
}

// BOM returns a cdx.BOM based on a data inside the Builder
func (b *Builder) BOM() cdx.BOM {
	bom := cdx.BOM{
		JSONSchema:   "https://cyclonedx.org/schema/bom-1.6.schema.json",
		BOMFormat:    "CycloneDX",
		SpecVersion:  cdx.SpecVersion1_6,
		SerialNumber: "urn:uuid:" + uuid.New().String(),
		Version:      1,
		Metadata: &cdx.Metadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Lifecycles: &[]cdx.Lifecycle{
				{
					Phase: "operations",
				},
			},
			Component: &cdx.Component{
				Type:    cdx.ComponentTypeApplication,
				Name:    "blastweb",
				Version: version,
				Manufacturer: &cdx.OrganizationalEntity{
					Name: "CZERTAINLY",
					URL: &[]string{
						"https://www.czertainly.com",
					},
				},
			},
		},
		Components: &b.components,
	}
	return bom
}

// AsJSON encode the BOM into JSON format
func (b *Builder) AsJSON(w io.Writer) error {
	bom := b.BOM()
	return cdx.NewBOMEncoder(w, cdx.BOMFileFormatJSON).SetPretty(true).Encode(&bom)
}
