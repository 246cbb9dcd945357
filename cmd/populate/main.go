package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/DRSN-tech/similarity-backend/internal/cfg"
	"github.com/DRSN-tech/similarity-backend/internal/infrastructure/embedder"
	"github.com/DRSN-tech/similarity-backend/internal/usecase"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
	"github.com/DRSN-tech/similarity-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// metadataItem — один товар из файла метаданных каталога.
type metadataItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Brand      string `json:"brand"`
	Price      string `json:"price"`
	Category   string `json:"category"`
	ProductURL string `json:"product_url"`
	Image      string `json:"image"`
}

type populateItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Brand      string    `json:"brand"`
	Price      int64     `json:"price"`
	Category   string    `json:"category"`
	ProductURL string    `json:"product_url"`
	ImageKey   string    `json:"image_key"`
	Embedding  []float32 `json:"embedding"`
}

type populateRequest struct {
	Items  []populateItem `json:"items"`
	Upsert bool           `json:"upsert"`
}

type populateResponse struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Errors   []struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
	} `json:"errors"`
}

type uploadImagesResponse struct {
	ImageKeys []string `json:"image_keys"`
}

var (
	flagServer       string
	flagMetadata     string
	flagImagesDir    string
	flagClear        bool
	flagDryRun       bool
	flagUpsert       bool
	flagUploadImages bool
)

var rootCmd = &cobra.Command{
	Use:   "populate",
	Short: "Пакетная загрузка каталога товаров с векторизацией изображений",
	Long: `Читает файл метаданных каталога, векторизует изображения товаров через
внешний сервис и загружает пакет в backend. Ошибка одного товара не
прерывает загрузку остальных.`,
	RunE: runPopulate,
}

func init() {
	rootCmd.Flags().StringVar(&flagServer, "server", "http://localhost:8080", "адрес backend-сервиса")
	rootCmd.Flags().StringVar(&flagMetadata, "metadata", "", "путь к JSON-файлу метаданных каталога")
	rootCmd.Flags().StringVar(&flagImagesDir, "images-dir", "", "директория с изображениями товаров")
	rootCmd.Flags().BoolVar(&flagClear, "clear", false, "очистить каталог перед загрузкой")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "проверить и векторизовать без записи в каталог")
	rootCmd.Flags().BoolVar(&flagUpsert, "upsert", false, "обновлять существующие товары вместо пропуска")
	rootCmd.Flags().BoolVar(&flagUploadImages, "upload-images", false, "загружать изображения в хранилище backend и использовать выданные ключи")
	rootCmd.MarkFlagRequired("metadata")
	rootCmd.MarkFlagRequired("images-dir")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPopulate(cmd *cobra.Command, args []string) error {
	log := logger.NewSlogLogger()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	items, err := readMetadata(flagMetadata)
	if err != nil {
		return err
	}
	log.Infof("metadata loaded: %d items", len(items))

	emb := embedder.NewEmbedder(cfg.LoadEmbedderCfg(), log)
	httpClient := &http.Client{Timeout: 60 * time.Second}

	if flagClear && !flagDryRun {
		if err := clearCatalog(ctx, httpClient); err != nil {
			return err
		}
		log.Infof("catalog cleared")
	}

	var (
		prepared []populateItem
		rejected int
	)
	for _, meta := range items {
		item, err := prepareItem(ctx, emb, meta)
		if err != nil {
			rejected++
			log.Warnf("item %q rejected: %v", meta.ID, err)
			continue
		}

		if flagUploadImages && !flagDryRun {
			key, err := uploadImage(ctx, httpClient, meta.Image)
			if err != nil {
				rejected++
				log.Warnf("item %q rejected: image upload failed: %v", meta.ID, err)
				continue
			}
			item.ImageKey = key
		}

		prepared = append(prepared, *item)
	}

	log.Infof("prepared %d items, rejected %d", len(prepared), rejected)

	if flagDryRun {
		log.Infof("dry run, nothing written")
		return nil
	}

	report, err := sendPopulate(ctx, httpClient, &populateRequest{Items: prepared, Upsert: flagUpsert})
	if err != nil {
		return err
	}

	log.Infof("populate finished: inserted=%d skipped=%d", report.Inserted, report.Skipped)
	for _, itemErr := range report.Errors {
		log.Warnf("item %q skipped: %s", itemErr.ID, itemErr.Reason)
	}

	return nil
}

func readMetadata(path string) ([]metadataItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, e.Wrap("read metadata", err)
	}

	var items []metadataItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, e.Wrap("parse metadata", err)
	}

	return items, nil
}

// prepareItem проверяет метаданные, векторизует изображение и собирает товар пакета.
func prepareItem(ctx context.Context, emb *embedder.Embedder, meta metadataItem) (*populateItem, error) {
	if meta.ID == "" {
		return nil, e.ErrEmptyID
	}

	price, err := parsePrice(meta.Price)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(flagImagesDir, meta.Image))
	if err != nil {
		return nil, e.Wrap("read image", err)
	}

	image := usecase.NewProductImage(data, http.DetectContentType(data[:min(len(data), 512)]), int64(len(data)), meta.Image)
	vectors, err := emb.Vectorize(ctx, usecase.NewVectorizeReq([]usecase.ProductImage{*image}))
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, e.ErrEmptyVector
	}

	return &populateItem{
		ID:         meta.ID,
		Name:       meta.Name,
		Brand:      meta.Brand,
		Price:      price,
		Category:   meta.Category,
		ProductURL: meta.ProductURL,
		ImageKey:   meta.Image,
		Embedding:  vectors[0].Vector,
	}, nil
}

// parsePrice переводит десятичную цену в минорные единицы (копейки/воны).
func parsePrice(s string) (int64, error) {
	if s == "" {
		return 0, e.ErrInvalidPrice
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, e.ErrInvalidPrice
	}
	if d.LessThan(decimal.Zero) {
		return 0, e.ErrInvalidPrice
	}
	if d.Exponent() < -2 {
		return 0, e.ErrInvalidPrice
	}

	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

func clearCatalog(ctx context.Context, client *http.Client) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, flagServer+"/api/v1/catalog/", nil)
	if err != nil {
		return e.Wrap("clear catalog", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return e.Wrap("clear catalog", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return e.Wrap("clear catalog", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return nil
}

// uploadImage отправляет изображение товара в хранилище backend и возвращает выданный ключ.
func uploadImage(ctx context.Context, client *http.Client, filename string) (string, error) {
	data, err := os.ReadFile(filepath.Join(flagImagesDir, filename))
	if err != nil {
		return "", e.Wrap("read image", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("images", filename)
	if err != nil {
		return "", e.Wrap("upload image", err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", e.Wrap("upload image", err)
	}
	if err := mw.Close(); err != nil {
		return "", e.Wrap("upload image", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, flagServer+"/api/v1/catalog/images", &body)
	if err != nil {
		return "", e.Wrap("upload image", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return "", e.Wrap("upload image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", e.Wrap("upload image", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var res uploadImagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", e.Wrap("upload image", err)
	}
	if len(res.ImageKeys) == 0 {
		return "", e.Wrap("upload image", fmt.Errorf("empty key list in response"))
	}

	return res.ImageKeys[0], nil
}

func sendPopulate(ctx context.Context, client *http.Client, payload *populateRequest) (*populateResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, e.Wrap("populate", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, flagServer+"/api/v1/catalog/populate", bytes.NewReader(body))
	if err != nil {
		return nil, e.Wrap("populate", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, e.Wrap("populate", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, e.Wrap("populate", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var report populateResponse
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, e.Wrap("populate", err)
	}

	return &report, nil
}
