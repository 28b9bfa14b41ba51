package shader

import (
	"fmt"

	"github.com/gogpu/naga/spirv"
	"github.com/spaghettifunk/trigon/engine/renderer/hal"
)

// SPIR-V module header: magic, version, generator, bound, schema.
const headerWords = 5

type EntryPoint struct {
	Model spirv.ExecutionModel
	Name  string
}

// EntryPoints lists the OpEntryPoint instructions of a SPIR-V module.
func EntryPoints(words []uint32) ([]EntryPoint, error) {
	if len(words) < headerWords {
		return nil, fmt.Errorf("%w: module has %d words, header needs %d", ErrInvalidSPIRV, len(words), headerWords)
	}
	if words[0] != spirv.MagicNumber {
		return nil, fmt.Errorf("%w: bad magic 0x%08X", ErrInvalidSPIRV, words[0])
	}

	var out []EntryPoint
	for i := headerWords; i < len(words); {
		count := int(words[i] >> 16)
		opcode := spirv.OpCode(words[i] & 0xFFFF)
		if count == 0 || i+count > len(words) {
			return nil, fmt.Errorf("%w: truncated instruction at word %d", ErrInvalidSPIRV, i)
		}
		// OpEntryPoint <model> <function id> <literal name> <interface ids...>
		if opcode == spirv.OpEntryPoint && count >= 4 {
			out = append(out, EntryPoint{
				Model: spirv.ExecutionModel(words[i+1]),
				Name:  literalString(words[i+3 : i+count]),
			})
		}
		i += count
	}
	return out, nil
}

// Verify checks that words declares an entry point called name for stage.
func Verify(stage hal.ShaderStage, words []uint32, name string) error {
	model, err := executionModel(stage)
	if err != nil {
		return err
	}
	entries, err := EntryPoints(words)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Model == model && e.Name == name {
			return nil
		}
	}
	return fmt.Errorf("%w: no %s entry point named %q", ErrMissingEntryPoint, stage, name)
}

func executionModel(stage hal.ShaderStage) (spirv.ExecutionModel, error) {
	switch stage {
	case hal.ShaderStageVertex:
		return spirv.ExecutionModelVertex, nil
	case hal.ShaderStageFragment:
		return spirv.ExecutionModelFragment, nil
	default:
		return 0, fmt.Errorf("unsupported shader stage %d", stage)
	}
}

// literalString decodes a nul-terminated UTF-8 literal packed four bytes per
// word, low byte first.
func literalString(words []uint32) string {
	buf := make([]byte, 0, len(words)*4)
	for _, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return string(buf)
			}
			buf = append(buf, c)
		}
	}
	return string(buf)
}
