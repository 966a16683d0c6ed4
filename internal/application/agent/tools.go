package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"plc-agent-api/internal/application/access"
	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/infrastructure/bridge"
)

// Platform 目标 PLC 平台
type Platform struct {
	Name     string
	Language string
	FileExt  string
}

// Platforms 支持的平台
var Platforms = map[string]Platform{
	"siemens":       {Name: "Siemens TIA Portal", Language: "SCL (Structured Control Language)", FileExt: ".scl"},
	"allen_bradley": {Name: "Allen-Bradley Studio 5000", Language: "Structured Text", FileExt: ".st"},
	"codesys":       {Name: "CODESYS", Language: "Structured Text (IEC 61131-3)", FileExt: ".st"},
}

var knownExtensions = []string{".scl", ".st", ".xml", ".csv", ".json", ".l5x"}

// PlatformFor 未知平台按 siemens 处理
func PlatformFor(name string) Platform {
	if p, ok := Platforms[name]; ok {
		return p
	}
	return Platforms["siemens"]
}

// FileSaver 输出文件写入
type FileSaver interface {
	Save(ctx context.Context, name, content string) (string, error)
}

// Bridge TIA Portal 自动化网关
type Bridge interface {
	BaseURL() string
	ImportSCL(ctx context.Context, blockName, sclCode string) (*bridge.ActionResult, error)
	Compile(ctx context.Context, blockName string) (*bridge.ActionResult, error)
	ExportBlock(ctx context.Context, blockName string) (*bridge.ActionResult, error)
}

// Toolbox 内置工具的依赖
type Toolbox struct {
	completer Completer
	files     FileSaver
	bridge    Bridge
	now       func() time.Time
}

// NewToolbox 创建工具集
func NewToolbox(completer Completer, files FileSaver, br Bridge) *Toolbox {
	return &Toolbox{completer: completer, files: files, bridge: br, now: time.Now}
}

// Catalog 注册全部内置工具
func (t *Toolbox) Catalog() (*Catalog, error) {
	return NewCatalog(
		t.generatePLCCode(),
		t.troubleshoot(),
		t.convertCode(),
		t.explainCode(),
		t.generateTagList(),
		t.saveCodeToFile(),
		t.sendToTIAPortal(),
	)
}

func str(desc string, required bool, enum ...string) *schema.ParameterInfo {
	return &schema.ParameterInfo{Type: schema.String, Desc: desc, Required: required, Enum: enum}
}

var allPlatforms = []string{"siemens", "allen_bradley", "codesys"}

func (t *Toolbox) timestamp() string {
	return t.now().Format("20060102_150405")
}

// save 写入文件并记录到当前提交，失败时只返回说明
func (t *Toolbox) save(ctx context.Context, name, content string) string {
	path, err := t.files.Save(ctx, name, content)
	if err != nil {
		return fmt.Sprintf("Could not save %s: %v", name, err)
	}
	RecordFile(ctx, name)
	return "Saved to: " + path
}

func (t *Toolbox) generatePLCCode() *ToolSpec {
	return &ToolSpec{
		Name: access.ToolGeneratePLCCode,
		Desc: "Generate complete, compilable PLC code from a natural language description. Supports Siemens SCL, Allen-Bradley Structured Text, and CODESYS.",
		Params: map[string]*schema.ParameterInfo{
			"description": str("Detailed description of what the PLC program should do", true),
			"platform":    str("Target PLC platform", true, allPlatforms...),
			"block_type":  str("Type of PLC block to generate", false, "FB", "FC", "OB", "AOI", "Program", "Function"),
			"block_name":  str("Name for the PLC block", false),
		},
		MinTier: entity.TierFree,
		Handler: func(ctx context.Context, args Args) (string, error) {
			p := PlatformFor(args.String("platform"))
			blockType := args.StringOr("block_type", "FB")
			blockName := args.StringOr("block_name", "NewBlock")

			prompt := fmt.Sprintf(`Generate a complete, compilable %s named '%s'
for %s in %s.

Description of what it should do:
%s

Requirements:
- Include ALL variable declarations
- Add comprehensive comments
- Include error handling and fault detection
- Follow the naming conventions in your system prompt
- The code must compile without errors in %s
- Generate the COMPLETE block, not a snippet

Return ONLY the PLC code, no additional explanation.`, blockType, blockName, p.Name, p.Language, args.String("description"), p.Name)

			code, err := t.completer.Complete(ctx, prompt)
			if err != nil {
				return "", err
			}
			saved := t.save(ctx, blockName+p.FileExt, code)
			return fmt.Sprintf("Generated %s '%s' for %s.\n%s\n\n%s", blockType, blockName, p.Name, saved, code), nil
		},
	}
}

func (t *Toolbox) troubleshoot() *ToolSpec {
	return &ToolSpec{
		Name: access.ToolTroubleshoot,
		Desc: "Diagnose PLC faults, interpret error codes, and provide step-by-step troubleshooting procedures.",
		Params: map[string]*schema.ParameterInfo{
			"problem_description": str("Description of the problem, error codes, LED status, symptoms", true),
			"platform":            str("PLC platform", true, "siemens", "allen_bradley"),
			"cpu_model":           str("Specific CPU model (e.g., S7-1500, 1756-L85E)", false),
		},
		MinTier: entity.TierFree,
		Handler: func(ctx context.Context, args Args) (string, error) {
			p := PlatformFor(args.String("platform"))
			prompt := fmt.Sprintf(`Troubleshoot this %s PLC issue:

CPU Model: %s
Problem: %s

Provide your diagnosis in this exact structure:
1. MOST LIKELY CAUSE: (one paragraph)
2. DIAGNOSTIC STEPS: (numbered step-by-step)
3. SOLUTION: (how to fix it)
4. PREVENTION: (how to prevent this in the future)
5. RELATED ISSUES: (other things to check while you're at it)`, p.Name, args.StringOr("cpu_model", "not specified"), args.String("problem_description"))
			return t.completer.Complete(ctx, prompt)
		},
	}
}

func (t *Toolbox) convertCode() *ToolSpec {
	return &ToolSpec{
		Name: access.ToolConvertCode,
		Desc: "Convert PLC code from one platform to another (e.g., Siemens to Allen-Bradley or vice versa).",
		Params: map[string]*schema.ParameterInfo{
			"source_code":     str("The original PLC code to convert", true),
			"source_platform": str("Original platform", true, allPlatforms...),
			"target_platform": str("Target platform to convert to", true, allPlatforms...),
		},
		MinTier: entity.TierPro,
		Handler: func(ctx context.Context, args Args) (string, error) {
			src := PlatformFor(args.String("source_platform"))
			dst := PlatformFor(args.String("target_platform"))
			prompt := fmt.Sprintf("Convert this PLC code from %s (%s)\nto %s (%s).\n\nSOURCE CODE:\n```\n%s\n```\n\n"+
				`CONVERSION REQUIREMENTS:
1. Map ALL data types correctly (watch INT size differences!)
2. Convert all instructions to target platform equivalents
3. Adapt timer/counter syntax
4. Adjust array indexing (Siemens 1-based vs AB 0-based)
5. Flag ANY instructions without direct equivalents
6. Preserve ALL comments (translate if needed)
7. Maintain the same logic flow and structure

Return:
- The complete converted code
- A conversion notes section listing all changes made
- Any warnings about behavioral differences`, src.Name, src.Language, dst.Name, dst.Language, args.String("source_code"))

			result, err := t.completer.Complete(ctx, prompt)
			if err != nil {
				return "", err
			}
			saved := t.save(ctx, "converted_"+t.timestamp()+dst.FileExt, result)
			return fmt.Sprintf("Conversion complete. %s\n\n%s", saved, result), nil
		},
	}
}

func (t *Toolbox) explainCode() *ToolSpec {
	return &ToolSpec{
		Name: access.ToolExplainCode,
		Desc: "Analyze and explain existing PLC code - what it does, how it works, and suggest improvements.",
		Params: map[string]*schema.ParameterInfo{
			"code":     str("The PLC code to analyze", true),
			"platform": str("Which platform the code is for", false, allPlatforms...),
		},
		MinTier: entity.TierFree,
		Handler: func(ctx context.Context, args Args) (string, error) {
			prompt := fmt.Sprintf("Analyze this PLC code (platform: %s):\n\n```\n%s\n```\n\n"+
				`Provide:
1. SUMMARY: What this code does (2-3 sentences)
2. INPUTS/OUTPUTS: List all I/O with descriptions
3. LOGIC FLOW: Step-by-step explanation of the logic
4. POTENTIAL ISSUES: Any bugs, inefficiencies, or safety concerns
5. SUGGESTED IMPROVEMENTS: How to make this code better`, args.StringOr("platform", "auto-detect"), args.String("code"))
			return t.completer.Complete(ctx, prompt)
		},
	}
}

func (t *Toolbox) generateTagList() *ToolSpec {
	return &ToolSpec{
		Name: access.ToolGenerateTagList,
		Desc: "Generate a structured tag/variable list for a PLC project, ready for import.",
		Params: map[string]*schema.ParameterInfo{
			"description": str("Description of the system to generate tags for", true),
			"platform":    str("Target platform", true, "siemens", "allen_bradley"),
			"format":      str("Output format for the tag list", false, "csv", "json", "xml"),
		},
		MinTier: entity.TierFree,
		Handler: func(ctx context.Context, args Args) (string, error) {
			p := PlatformFor(args.String("platform"))
			format := args.StringOr("format", "csv")
			prompt := fmt.Sprintf(`Generate a complete PLC tag list for %s.

System description: %s

Output format: %s
Include: Tag name, Data type, Address (if applicable), Description, Initial value, Engineering unit

Follow standard naming conventions:
- Digital inputs: DI_xxx or I_xxx
- Digital outputs: DO_xxx or Q_xxx
- Analog inputs: AI_xxx
- Analog outputs: AO_xxx
- Internal: M_xxx or internal tag
- Timers: T_xxx or TON_xxx
- Counters: C_xxx or CTU_xxx`, p.Name, args.String("description"), format)

			result, err := t.completer.Complete(ctx, prompt)
			if err != nil {
				return "", err
			}
			saved := t.save(ctx, "taglist_"+t.timestamp()+"."+format, result)
			return fmt.Sprintf("Tag list generated. %s\n\n%s", saved, result), nil
		},
	}
}

func (t *Toolbox) saveCodeToFile() *ToolSpec {
	return &ToolSpec{
		Name: access.ToolSaveCodeToFile,
		Desc: "Save generated PLC code to a file in the output directory.",
		Params: map[string]*schema.ParameterInfo{
			"filename": str("Name for the output file (without path)", true),
			"content":  str("The code content to save", true),
			"platform": str("Platform (determines file extension)", false, allPlatforms...),
		},
		MinTier: entity.TierFree,
		Handler: func(ctx context.Context, args Args) (string, error) {
			name := SaveFileName(args.String("filename"), args.StringOr("platform", "siemens"))
			path, err := t.files.Save(ctx, name, args.String("content"))
			if err != nil {
				return "", err
			}
			RecordFile(ctx, name)
			return "File saved: " + path, nil
		},
	}
}

// SaveFileName 缺少已知扩展名时追加平台扩展名
func SaveFileName(filename, platform string) string {
	lower := strings.ToLower(filename)
	for _, ext := range knownExtensions {
		if strings.HasSuffix(lower, ext) {
			return filename
		}
	}
	return filename + PlatformFor(platform).FileExt
}

func (t *Toolbox) sendToTIAPortal() *ToolSpec {
	return &ToolSpec{
		Name: access.ToolSendToTIAPortal,
		Desc: "Send generated code to TIA Portal via the Windows bridge server. Requires the bridge to be running on your Windows PC.",
		Params: map[string]*schema.ParameterInfo{
			"block_name": str("Name of the block to create in TIA Portal", true),
			"scl_code":   str("The SCL code to import", false),
			"action":     str("Action to perform in TIA Portal", true, "import", "compile", "export"),
		},
		MinTier: entity.TierPro,
		Handler: func(ctx context.Context, args Args) (string, error) {
			action := args.String("action")
			blockName := args.String("block_name")

			var (
				res *bridge.ActionResult
				err error
			)
			switch action {
			case "import":
				if strings.TrimSpace(args.String("scl_code")) == "" {
					return "", errors.New("scl_code is required for import")
				}
				res, err = t.bridge.ImportSCL(ctx, blockName, args.String("scl_code"))
			case "compile":
				res, err = t.bridge.Compile(ctx, blockName)
			case "export":
				res, err = t.bridge.ExportBlock(ctx, blockName)
			}
			if err != nil {
				if errors.Is(err, bridge.ErrUnreachable) {
					return fmt.Sprintf("Cannot connect to TIA Portal bridge at %s\nMake sure the bridge server is running on your Windows PC.", t.bridge.BaseURL()), nil
				}
				return fmt.Sprintf("Error communicating with TIA Portal bridge: %v", err), nil
			}

			status := "FAILED"
			if res.Success {
				status = "SUCCESS"
			}
			out := fmt.Sprintf("TIA Portal: %s '%s' - %s\n%s", action, blockName, status, res.Message)
			if res.XML != "" {
				out += "\n\n" + res.XML
			}
			return out, nil
		},
	}
}
