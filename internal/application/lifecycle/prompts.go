package lifecycle

import (
	"fmt"
	"strings"

	"plc-agent-api/internal/application/agent"
	"plc-agent-api/internal/domain/entity"
)

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func hardwareBlock(p *entity.Project) string {
	safety := "No"
	if p.SafetyRequired {
		safety = "Yes"
	}
	modules := "[]"
	if len(p.IOModules) > 0 {
		modules = "[" + strings.Join(p.IOModules, ", ") + "]"
	}
	return fmt.Sprintf("CPU: %s %s\nSoftware: %s\nNetwork: %s\nSafety: %s\nIO Modules: %s\nArchitecture: %s\n",
		orDefault(p.CPUModel, "S7-1500"), p.CPUVariant,
		orDefault(p.SoftwareVersion, "V18"),
		orDefault(p.NetworkType, "PROFINET"),
		safety, modules,
		orDefault(p.ArchitectureNotes, "Not specified"))
}

// BuildPrompt 根据项目资料生成文档生成提示词
func BuildPrompt(p *entity.Project, docType entity.DocType, extra string) string {
	platform := agent.PlatformFor(p.Platform)
	hw := hardwareBlock(p)
	instructions := ""
	if strings.TrimSpace(extra) != "" {
		instructions = "Additional instructions: " + extra + "\n"
	}

	switch docType {
	case entity.DocTypeFDS:
		return fmt.Sprintf(`Generate a detailed Functional Design Specification (FDS) for this %s PLC project.

Project: %s
Description: %s
%s%s
Structure the FDS with these sections:
1. **Project Overview** - scope, objectives, system description
2. **Hardware Architecture** - CPU, IO modules, network topology
3. **Software Architecture** - program structure, function blocks, data blocks
4. **Functional Requirements** - detailed behavior per function
5. **IO Signal List Summary** - input/output signals overview
6. **Safety Requirements** - if applicable
7. **HMI Requirements** - operator interface needs
8. **Communication** - network, protocol details
9. **Alarm & Diagnostics** - fault handling strategy

Write in professional engineering format with clear numbered sections.`,
			platform.Name, p.Title, orDefault(p.Description, "Not provided"), hw, instructions)

	case entity.DocTypeIOList:
		fds := p.FDSContent
		if strings.TrimSpace(fds) == "" {
			fds = "No FDS available. Generate based on project description: " + p.Description
		}
		return fmt.Sprintf(`Generate a comprehensive IO List for this %s PLC project based on the FDS.

Project: %s
%sFDS Content:
%s
%s
Create a structured IO list in markdown table format with these columns:
| Tag Name | Description | IO Type | Data Type | HW Address | Signal Range | Unit | Comment |

IO Types: DI (Digital In), DO (Digital Out), AI (Analog In), AO (Analog Out)
Include realistic addressing for the platform (e.g., %%I0.0, %%Q0.0, %%IW64, %%QW80).
Group by functional area. Include all signals needed for the project.`,
			platform.Name, p.Title, hw, fds, instructions)

	case entity.DocTypePLCCode:
		return fmt.Sprintf(`Generate complete, production-ready %s code for %s.

Project: %s
%sFDS Summary:
%s

IO List:
%s
%s
Generate complete code including:
1. **Main program cycle** - program cycle organization
2. **Function Blocks** - one per major subsystem with IN/OUT/INOUT/STAT/TEMP vars
3. **Data Blocks** - instance and global data
4. **Functions** - utility/helper functions
5. **Error handling** - diagnostic codes, fault bits
6. **Comments** - comprehensive inline documentation

Make it compilable and complete.`,
			platform.Language, platform.Name, p.Title, hw,
			truncate(p.FDSContent, 3000), truncate(p.IOListContent, 2000), instructions)

	case entity.DocTypeFAT:
		return fmt.Sprintf(`Generate a Factory Acceptance Test (FAT) document for this %s PLC project.

Project: %s
%sFDS Summary:
%s
%s
Structure the FAT document with:
1. **Test Overview** - purpose, scope, references
2. **Test Environment** - hardware setup, software versions
3. **Pre-conditions** - what must be ready before testing
4. **Test Cases** - numbered test cases in table format:
   | Test ID | Description | Steps | Expected Result | Actual Result | Pass/Fail |
5. **IO Verification Tests** - verify all inputs/outputs
6. **Functional Tests** - verify each function per FDS
7. **Safety Tests** - emergency stop, interlocks (if applicable)
8. **Communication Tests** - network, HMI
9. **Performance Tests** - cycle time, response time
10. **Sign-off** - approval section`,
			platform.Name, p.Title, hw, truncate(p.FDSContent, 2000), instructions)

	default:
		return fmt.Sprintf(`Generate a Site Acceptance Test (SAT) document for this %s PLC project.

Project: %s
%sFDS Summary:
%s
%s
Structure the SAT document with:
1. **Site Test Overview** - purpose, scope, site conditions
2. **Site Prerequisites** - power, utilities, mechanical completion
3. **Commissioning Checklist** - pre-start verification
4. **Integration Test Cases**:
   | Test ID | Description | Steps | Expected Result | Actual Result | Pass/Fail |
5. **Real-World Scenario Tests** - actual production scenarios
6. **Performance Benchmarks** - throughput, cycle times under load
7. **Safety System Validation** - on-site safety verification
8. **Operator Training Verification** - HMI, procedures
9. **Punch List** - outstanding items
10. **Customer Sign-off** - acceptance section`,
			platform.Name, p.Title, hw, truncate(p.FDSContent, 2000), instructions)
	}
}
