// Package main downloads the Bhutan legal document corpus into the local
// document directory, optionally uploading each file to MinIO and announcing
// it on Kafka so a running server rebuilds its index.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/config"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/kafka"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/log"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/storage"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/tasks"
)

// The Bhutan legal corpus. Names become file names with spaces replaced by
// underscores, which is also how answers attribute their sources.
var documents = map[string]string{
	"Constitution of Bhutan 2008":             "https://www.constitution.bt/wp-content/uploads/2011/02/Constitution-of-Bhutan-2008.pdf",
	"Anti-Corruption Act 2011":                "https://oag.gov.bt/wp-content/uploads/2018/07/Anti-Corruption-Act-2011.pdf",
	"Penal Code 2004":                         "https://rbp.gov.bt/wp-content/uploads/2025/03/PCB-2004.pdf",
	"Civil and Criminal Procedure Code 2001":  "https://oag.gov.bt/wp-content/uploads/2018/07/Civil-and-Criminal-Procedure-Code-2001.pdf",
	"Evidence Act 2005":                       "https://oag.gov.bt/wp-content/uploads/2018/07/Evidence-Act-2005.pdf",
	"Tax Act 2022":                            "https://oag.gov.bt/wp-content/uploads/2023/01/Tax-Act-2022.pdf",
	"Land Act 2007":                           "https://oag.gov.bt/wp-content/uploads/2018/07/Land-Act-2007.pdf",
	"Environment Protection Act 2007":         "https://oag.gov.bt/wp-content/uploads/2018/07/Environment-Protection-Act-2007.pdf",
	"Labour and Employment Act 2007":          "https://oag.gov.bt/wp-content/uploads/2018/07/Labour-and-Employment-Act-2007.pdf",
	"Marriage Act 1980":                       "https://oag.gov.bt/wp-content/uploads/2018/07/Marriage-Act-1980.pdf",
	"Companies Act 2000":                      "https://oag.gov.bt/wp-content/uploads/2018/07/Companies-Act-2000.pdf",
	"Income Tax Act 2001":                     "https://oag.gov.bt/wp-content/uploads/2018/07/Income-Tax-Act-2001.pdf",
	"Foreign Exchange Act 2019":               "https://oag.gov.bt/wp-content/uploads/2020/01/Foreign-Exchange-Act-2019.pdf",
	"Intellectual Property Act 2001":          "https://oag.gov.bt/wp-content/uploads/2018/07/Intellectual-Property-Act-2001.pdf",
	"Road Safety Act 2012":                    "https://oag.gov.bt/wp-content/uploads/2018/07/Road-Safety-Act-2012.pdf",
	"Child Care and Protection Act 2011":      "https://oag.gov.bt/wp-content/uploads/2018/07/Child-Care-and-Protection-Act-2011.pdf",
	"Juvenile Justice Act 2011":               "https://oag.gov.bt/wp-content/uploads/2018/07/Juvenile-Justice-Act-2011.pdf",
	"Right to Information Act 2016":           "https://oag.gov.bt/wp-content/uploads/2018/07/Right-to-Information-Act-2016.pdf",
	"Public Health Act 2005":                  "https://oag.gov.bt/wp-content/uploads/2018/07/Public-Health-Act-2005.pdf",
	"Forest and Nature Conservation Act 1995": "https://oag.gov.bt/wp-content/uploads/2018/07/Forest-and-Nature-Conservation-Act-1995.pdf",
	"Electricity Act 2001":                    "https://oag.gov.bt/wp-content/uploads/2018/07/Electricity-Act-2001.pdf",
	"Telecommunications Act 2006":             "https://oag.gov.bt/wp-content/uploads/2018/07/Telecommunications-Act-2006.pdf",
	"Drugs Act 2003":                          "https://oag.gov.bt/wp-content/uploads/2018/07/Drugs-Act-2003.pdf",
	"Immigration Act 2007":                    "https://oag.gov.bt/wp-content/uploads/2018/07/Immigration-Act-2007.pdf",
	"Water Act 2011":                          "https://oag.gov.bt/wp-content/uploads/2011/02/Water-Act-2011.pdf",
}

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to the configuration file")
	flag.Parse()

	config.Init(*configPath)
	cfg := config.Conf
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	if err := os.MkdirAll(cfg.Data.DocumentsDir, os.ModePerm); err != nil {
		log.Fatalf("failed to create documents directory: %v", err)
	}

	var minioClient *storage.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = storage.NewClient(cfg.MinIO)
		if err != nil {
			log.Warnf("MinIO unavailable, keeping documents local only: %v", err)
			minioClient = nil
		}
	}
	if cfg.Kafka.Brokers != "" {
		kafka.InitProducer(cfg.Kafka)
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	ctx := context.Background()

	downloaded := 0
	for name, url := range documents {
		fileName := strings.ReplaceAll(strings.ReplaceAll(name, " ", "_"), "/", "_") + ".pdf"
		path := filepath.Join(cfg.Data.DocumentsDir, fileName)

		if _, err := os.Stat(path); err == nil {
			log.Infof("[Downloader] already present, skipping: %s", fileName)
			continue
		}

		size, err := download(client, url, path)
		if err != nil {
			log.Warnf("[Downloader] failed to download %s: %v", name, err)
			continue
		}
		log.Infof("[Downloader] saved %s (%d bytes)", fileName, size)
		downloaded++

		if minioClient != nil {
			if err := minioClient.Upload(ctx, path); err != nil {
				log.Warnf("[Downloader] failed to upload %s to MinIO: %v", fileName, err)
			}
		}
		if cfg.Kafka.Brokers != "" {
			event := tasks.DocumentIngestEvent{
				Document: strings.TrimSuffix(fileName, ".pdf"),
				Size:     size,
				Source:   url,
			}
			if err := kafka.ProduceIngestEvent(event); err != nil {
				log.Warnf("[Downloader] failed to publish ingest event for %s: %v", fileName, err)
			}
		}
	}

	log.Infof("[Downloader] done, %d new documents", downloaded)
}

// download streams the response body to path via a temporary file so an
// interrupted transfer never leaves a truncated PDF behind.
func download(client *http.Client, url, path string) (int64, error) {
	resp, err := client.Get(url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	size, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, err
	}
	return size, os.Rename(tmp, path)
}
