package contract

import (
	_ "embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_contract.yaml
var defaultContract []byte

var scalarTypes = map[string]struct{}{
	"scalar":   {},
	"string":   {},
	"text":     {},
	"richtext": {},
	"uid":      {},
	"integer":  {},
	"number":   {},
	"boolean":  {},
	"datetime": {},
	"json":     {},
}

// Default returns the contract bundled with the module.
func Default() (*Contract, error) {
	return Parse(defaultContract)
}

// Load reads the contract at path, or the bundled contract when path is empty.
func Load(path string) (*Contract, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, contractWrapError(err, "contract: read "+path, map[string]any{"path": path})
	}
	return Parse(data)
}

func LoadFS(fsys fs.FS, path string) (*Contract, error) {
	if fsys == nil {
		return nil, contractError("contract: filesystem is required", nil)
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, contractWrapError(err, "contract: read "+path, map[string]any{"path": path})
	}
	return Parse(data)
}

func Parse(data []byte) (*Contract, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, contractError("contract: document is empty", nil)
	}
	var c Contract
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, contractWrapError(err, "contract: parse document", nil)
	}
	if err := c.compile(); err != nil {
		return nil, err
	}
	return &c, nil
}

// compile checks the whole table once so a malformed contract fails at startup
// instead of on the first record.
func (c *Contract) compile() error {
	if len(c.Entities) == 0 {
		return contractError("contract: at least one entity is required", nil)
	}

	c.enumSets = make(map[string]map[string]struct{}, len(c.Enums))
	for name, values := range c.Enums {
		if len(values) == 0 {
			return contractError(fmt.Sprintf("contract: enum %q has no values", name), map[string]any{"enum": name})
		}
		set := make(map[string]struct{}, len(values))
		for _, value := range values {
			set[value] = struct{}{}
		}
		c.enumSets[name] = set
	}

	for _, name := range c.EntityNames() {
		entity := c.Entities[name]
		if entity == nil {
			return contractError(fmt.Sprintf("contract: entity %q is empty", name), map[string]any{"entity": name})
		}
		entity.Name = name
		if err := c.compileEntity(entity); err != nil {
			return err
		}
	}
	return nil
}

func (c *Contract) compileEntity(entity *Entity) error {
	meta := map[string]any{"entity": entity.Name}
	entity.Collection = strings.TrimSpace(entity.Collection)
	if entity.Collection == "" {
		return contractError(fmt.Sprintf("contract: entity %q requires a collection", entity.Name), meta)
	}
	if len(entity.Sections) == 0 {
		return contractError(fmt.Sprintf("contract: entity %q declares no sections", entity.Name), meta)
	}

	sections := make([]string, 0, len(entity.Sections))
	for section := range entity.Sections {
		sections = append(sections, section)
	}
	sort.Strings(sections)

	entity.fields = make(map[string]FieldRule)
	for _, section := range sections {
		for field, rule := range entity.Sections[section] {
			if existing, dup := entity.fields[field]; dup {
				return contractError(
					fmt.Sprintf("contract: field %s.%s declared in sections %q and %q", entity.Name, field, existing.section, section),
					map[string]any{"entity": entity.Name, "field": field},
				)
			}
			kind, err := c.resolveKind(entity.Name, field, rule)
			if err != nil {
				return err
			}
			rule.kind = kind
			rule.section = section
			entity.fields[field] = rule
		}
	}

	entity.names = make([]string, 0, len(entity.fields))
	for field := range entity.fields {
		entity.names = append(entity.names, field)
	}
	sort.Strings(entity.names)

	entity.Identity = strings.TrimSpace(entity.Identity)
	if entity.Identity == "" {
		return contractError(fmt.Sprintf("contract: entity %q requires an identity field", entity.Name), meta)
	}
	identity, ok := entity.fields[entity.Identity]
	if !ok {
		return contractError(
			fmt.Sprintf("contract: identity field %q is not declared on %q", entity.Identity, entity.Name),
			meta,
		)
	}
	if identity.kind == FieldKindRelation {
		return contractError(fmt.Sprintf("contract: identity field %q on %q cannot be a relation", entity.Identity, entity.Name), meta)
	}
	return nil
}

func (c *Contract) resolveKind(entity string, field string, rule FieldRule) (FieldKind, error) {
	meta := map[string]any{"entity": entity, "field": field, "type": rule.Type}
	typeName := strings.TrimSpace(rule.Type)
	switch {
	case typeName == "enum":
		if rule.Enum == "" {
			return "", contractError(fmt.Sprintf("contract: enum field %s.%s must name an enum", entity, field), meta)
		}
		if _, ok := c.enumSets[rule.Enum]; !ok {
			return "", contractError(fmt.Sprintf("contract: field %s.%s references unknown enum %q", entity, field, rule.Enum), meta)
		}
		return FieldKindEnum, nil
	case typeName == "relation":
		if !isDirectionalRelation(rule.Relation) {
			return "", contractError(
				fmt.Sprintf("contract: relation field %s.%s needs a directional relation type (e.g. manyToOne), got %q", entity, field, rule.Relation),
				meta,
			)
		}
		return FieldKindRelation, nil
	case isDirectionalRelation(typeName):
		return FieldKindRelation, nil
	}
	if _, ok := scalarTypes[strings.ToLower(typeName)]; ok {
		return FieldKindScalar, nil
	}
	return "", contractError(fmt.Sprintf("contract: field %s.%s has unsupported type %q", entity, field, rule.Type), meta)
}

func isDirectionalRelation(name string) bool {
	name = strings.TrimSpace(name)
	idx := strings.Index(name, "To")
	return idx > 0 && idx+2 < len(name)
}
