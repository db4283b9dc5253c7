package qcgraph

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
)

// BuildVersion - will be filled at build process in pipeline
var BuildVersion string

// ServiceName - will be filled at build process in pipeline
var ServiceName = "qcgraph"

type healthCheck struct {
	Service      string   `json:"service"`
	Status       string   `json:"status"`
	ApiVersion   []string `json:"apiVersion"`
	BuildVersion string   `json:"buildVersion"`
	OpenPages    int      `json:"openPages"`
	MemStats     memStats `json:"memStats"`
}

type memStats struct {
	Alloc              string `json:"alloc"`
	Sys                string `json:"sys"`
	HeapInUse          string `json:"heapInUse"`
	NumberOfGoRoutines int    `json:"numberOfGoRoutines"`
}

func toMiB(bytes uint64) string {
	return fmt.Sprintf("%v MiB", bytes/1024/1024)
}

func (api *api) GetHealth(c *gin.Context) {
	var memStat runtime.MemStats
	runtime.ReadMemStats(&memStat)

	c.JSON(http.StatusOK, healthCheck{
		Service:      ServiceName,
		Status:       "running",
		ApiVersion:   []string{"v1"},
		BuildVersion: BuildVersion,
		OpenPages:    len(api.pageManager.GetPages()),
		MemStats: memStats{
			Alloc:              toMiB(memStat.Alloc),
			Sys:                toMiB(memStat.Sys),
			HeapInUse:          toMiB(memStat.HeapInuse),
			NumberOfGoRoutines: runtime.NumGoroutine(),
		},
	})
}
