package services

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

// ImgurResponse is the relevant subset of the Imgur API response.
type ImgurResponse struct {
	Data struct {
		ID         string `json:"id"`
		Link       string `json:"link"`
		DeleteHash string `json:"deletehash"`
		Type       string `json:"type"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// ImageUploadResult is what the admin upload endpoint returns; the URL goes
// straight into Poll.ProductImage.
type ImageUploadResult struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// UploadToImgur uploads a product image to Imgur and returns its public link.
func UploadToImgur(file multipart.File, header *multipart.FileHeader) (*ImageUploadResult, error) {
	clientID := os.Getenv("IMGUR_CLIENT_ID")
	if clientID == "" {
		return nil, fmt.Errorf("IMGUR_CLIENT_ID is not configured")
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	base64Image := base64.StdEncoding.EncodeToString(fileBytes)

	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	if err := writer.WriteField("image", base64Image); err != nil {
		return nil, fmt.Errorf("failed to build request body: %w", err)
	}
	if err := writer.WriteField("type", "base64"); err != nil {
		return nil, fmt.Errorf("failed to build request body: %w", err)
	}

	writer.Close()

	req, err := http.NewRequest("POST", "https://api.imgur.com/3/image", &requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Client-ID "+clientID)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var imgurResp ImgurResponse
	if err := json.Unmarshal(body, &imgurResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !imgurResp.Success {
		return nil, fmt.Errorf("imgur upload failed: status %d", imgurResp.Status)
	}

	return &ImageUploadResult{
		URL: imgurResp.Data.Link,
		ID:  imgurResp.Data.ID,
	}, nil
}

// UploadImage is the generic entry point (provider may change later).
// Currently backed by Imgur.
func UploadImage(file multipart.File, header *multipart.FileHeader) (*ImageUploadResult, error) {
	return UploadToImgur(file, header)
}
