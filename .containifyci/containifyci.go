//go:generate bash -c "if [ ! -f go.mod ]; then echo 'Initializing go.mod...'; go mod init .containifyci; else echo 'go.mod already exists. Skipping initialization.'; fi"
//go:generate go get github.com/containifyci/engine-ci/protos2
//go:generate go get github.com/containifyci/engine-ci/client
//go:generate go mod tidy

package main

import (
	"os"

	"github.com/containifyci/engine-ci/client/pkg/build"
)

func main() {
	os.Chdir("../")
	client := build.NewGoServiceBuild("analysis-client")
	client.Image = ""
	client.File = "client/main.go"

	worker := build.NewGoServiceBuild("analysis-worker")
	worker.Image = ""
	worker.File = "worker/main.go"
	worker.Properties = map[string]*build.ListValue{
		"goreleaser": build.NewList("true"),
	}
	build.BuildAsync(client, worker)
}
