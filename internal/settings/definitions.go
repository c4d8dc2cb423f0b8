package settings

import "github.com/zulandar/praktika/internal/workflow"

// BaseBranch is the branch pull requests are merged into.
const BaseBranch = "master"

// RunnerLabels names the runner host pools jobs can be scheduled on.
var RunnerLabels = struct {
	CIServices      string
	CIServicesEBS   string
	StyleChecker    string
	StyleCheckerARM string
}{
	CIServices:      "ci_services",
	CIServicesEBS:   "ci_services_ebs",
	StyleChecker:    "style-checker",
	StyleCheckerARM: "style-checker-aarch64",
}

// JobNames holds the display names of declared jobs.
var JobNames = struct {
	StyleCheck string
}{
	StyleCheck: "Style Check",
}

// StyleImage is the docker image the style check runs in.
const StyleImage = "clickhouse/style"

// Dockers returns the images workflows may run jobs in.
func Dockers() []workflow.Docker {
	return []workflow.Docker{
		{
			Name:      StyleImage,
			Path:      "./ci/docker/style-test",
			Platforms: []string{workflow.PlatformAMD64, workflow.PlatformARM64},
		},
	}
}

// Secrets returns the secrets workflows need at run time.
func Secrets() []workflow.Secret {
	return []workflow.Secret{
		{Name: DockerhubSecret, Type: workflow.SecretAWSSSMVar},
		{Name: SecretGHAppID, Type: workflow.SecretAWSSSMSecret},
		{Name: SecretGHAppPEMKey, Type: workflow.SecretAWSSSMSecret},
	}
}
