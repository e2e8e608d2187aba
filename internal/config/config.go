package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/navgrid.defaults.json"

// Config holds the parameters for one occupancy map build. Every field is a
// pointer so that a partial file, or a flag override, only touches the keys it
// names; the Get* accessors supply defaults for the rest.
type Config struct {
	// Lattice params. Must match the values the semantic map was built with.
	CellSize  *float64 `json:"cell_size,omitempty"`
	WorldSize *float64 `json:"world_size,omitempty"`

	// Scene params
	Scene             *string  `json:"scene,omitempty"`
	SampleHeight      *float64 `json:"sample_height,omitempty"`
	HeightTolerance   *float64 `json:"height_tolerance,omitempty"`
	SemanticMapFolder *string  `json:"semantic_map_folder,omitempty"`

	// Simulator params
	SimulatorURL      *string `json:"simulator_url,omitempty"`
	SimulatorTimeout  *string `json:"simulator_timeout,omitempty"` // duration string like "30s"
	ScenePathTemplate *string `json:"scene_path_template,omitempty"`
	SceneDataset      *string `json:"scene_dataset,omitempty"`

	// Output params
	ImageName         *string `json:"image_name,omitempty"`
	ProgressEveryRows *int    `json:"progress_every_rows,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Float64 returns a pointer to v, for building overrides.
func Float64(v float64) *float64 { return ptrFloat64(v) }

// String returns a pointer to v, for building overrides.
func String(v string) *string { return ptrString(v) }

// Int returns a pointer to v, for building overrides.
func Int(v int) *int { return ptrInt(v) }

// DefaultConfig returns a Config with every field set to its default value.
func DefaultConfig() *Config {
	return &Config{
		CellSize:          ptrFloat64(0.1),
		WorldSize:         ptrFloat64(10.0),
		SampleHeight:      ptrFloat64(0.0),
		HeightTolerance:   ptrFloat64(0.01),
		SemanticMapFolder: ptrString("output/semantic_map"),
		SimulatorURL:      ptrString("http://127.0.0.1:8765"),
		SimulatorTimeout:  ptrString("30s"),
		ScenePathTemplate: ptrString("data/scene_datasets/mp3d/%[1]s/%[1]s.glb"),
		SceneDataset:      ptrString("data/scene_datasets/mp3d/mp3d_annotated_basis.scene_dataset_config.json"),
		ImageName:         ptrString("occ_map.jpg"),
		ProgressEveryRows: ptrInt(20),
	}
}

// LoadConfig loads a Config from a JSON file. The path must have a .json
// extension and the file must be under 1MB. Fields omitted from the file are
// left nil and fall back to defaults through the Get* accessors.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Merge copies every non-nil field of o over c.
func (c *Config) Merge(o *Config) {
	if o == nil {
		return
	}
	if o.CellSize != nil {
		c.CellSize = o.CellSize
	}
	if o.WorldSize != nil {
		c.WorldSize = o.WorldSize
	}
	if o.Scene != nil {
		c.Scene = o.Scene
	}
	if o.SampleHeight != nil {
		c.SampleHeight = o.SampleHeight
	}
	if o.HeightTolerance != nil {
		c.HeightTolerance = o.HeightTolerance
	}
	if o.SemanticMapFolder != nil {
		c.SemanticMapFolder = o.SemanticMapFolder
	}
	if o.SimulatorURL != nil {
		c.SimulatorURL = o.SimulatorURL
	}
	if o.SimulatorTimeout != nil {
		c.SimulatorTimeout = o.SimulatorTimeout
	}
	if o.ScenePathTemplate != nil {
		c.ScenePathTemplate = o.ScenePathTemplate
	}
	if o.SceneDataset != nil {
		c.SceneDataset = o.SceneDataset
	}
	if o.ImageName != nil {
		c.ImageName = o.ImageName
	}
	if o.ProgressEveryRows != nil {
		c.ProgressEveryRows = o.ProgressEveryRows
	}
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.CellSize != nil && *c.CellSize <= 0 {
		return fmt.Errorf("cell_size must be positive, got %f", *c.CellSize)
	}
	if c.WorldSize != nil && *c.WorldSize <= 0 {
		return fmt.Errorf("world_size must be positive, got %f", *c.WorldSize)
	}
	if c.HeightTolerance != nil && *c.HeightTolerance < 0 {
		return fmt.Errorf("height_tolerance must be non-negative, got %f", *c.HeightTolerance)
	}
	if c.Scene != nil && strings.ContainsAny(*c.Scene, `/\`) {
		return fmt.Errorf("scene must be a bare identifier, got %q", *c.Scene)
	}
	if c.SimulatorTimeout != nil && *c.SimulatorTimeout != "" {
		if _, err := time.ParseDuration(*c.SimulatorTimeout); err != nil {
			return fmt.Errorf("invalid simulator_timeout '%s': %w", *c.SimulatorTimeout, err)
		}
	}
	if c.ProgressEveryRows != nil && *c.ProgressEveryRows < 0 {
		return fmt.Errorf("progress_every_rows must be non-negative, got %d", *c.ProgressEveryRows)
	}
	return nil
}

// GetCellSize returns the cell_size value or the default.
func (c *Config) GetCellSize() float64 {
	if c.CellSize == nil {
		return 0.1
	}
	return *c.CellSize
}

// GetWorldSize returns the world_size value or the default.
func (c *Config) GetWorldSize() float64 {
	if c.WorldSize == nil {
		return 10.0
	}
	return *c.WorldSize
}

// GetScene returns the scene id, or "" when none is configured.
func (c *Config) GetScene() string {
	if c.Scene == nil {
		return ""
	}
	return *c.Scene
}

// GetSampleHeight returns the sample_height value or the default.
func (c *Config) GetSampleHeight() float64 {
	if c.SampleHeight == nil {
		return 0
	}
	return *c.SampleHeight
}

// GetHeightTolerance returns the height_tolerance value or the default.
func (c *Config) GetHeightTolerance() float64 {
	if c.HeightTolerance == nil {
		return 0.01
	}
	return *c.HeightTolerance
}

// GetSemanticMapFolder returns the semantic_map_folder value or the default.
func (c *Config) GetSemanticMapFolder() string {
	if c.SemanticMapFolder == nil || *c.SemanticMapFolder == "" {
		return "output/semantic_map"
	}
	return *c.SemanticMapFolder
}

// GetSimulatorURL returns the simulator_url value or the default.
func (c *Config) GetSimulatorURL() string {
	if c.SimulatorURL == nil || *c.SimulatorURL == "" {
		return "http://127.0.0.1:8765"
	}
	return *c.SimulatorURL
}

// GetSimulatorTimeout parses and returns the SimulatorTimeout as a time.Duration.
func (c *Config) GetSimulatorTimeout() time.Duration {
	if c.SimulatorTimeout == nil || *c.SimulatorTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(*c.SimulatorTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetSceneDataset returns the scene_dataset value or the default.
func (c *Config) GetSceneDataset() string {
	if c.SceneDataset == nil {
		return "data/scene_datasets/mp3d/mp3d_annotated_basis.scene_dataset_config.json"
	}
	return *c.SceneDataset
}

// ScenePath expands scene_path_template for the given scene id.
func (c *Config) ScenePath(scene string) string {
	tmpl := "data/scene_datasets/mp3d/%[1]s/%[1]s.glb"
	if c.ScenePathTemplate != nil && *c.ScenePathTemplate != "" {
		tmpl = *c.ScenePathTemplate
	}
	return fmt.Sprintf(tmpl, scene)
}

// GetImageName returns the image_name value or the default.
func (c *Config) GetImageName() string {
	if c.ImageName == nil || *c.ImageName == "" {
		return "occ_map.jpg"
	}
	return *c.ImageName
}

// GetProgressEveryRows returns the progress_every_rows value or the default.
// Zero disables progress logging.
func (c *Config) GetProgressEveryRows() int {
	if c.ProgressEveryRows == nil {
		return 20
	}
	return *c.ProgressEveryRows
}
