// Package drive 把生成的文档上传到 OneDrive（Microsoft Graph）并创建共享链接。
// 使用官方账号的 refresh token 换取访问令牌，HTTP 调用走 retryablehttp 自带重试。
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	tokenURL = "https://login.microsoftonline.com/common/oauth2/v2.0/token"
	graphURL = "https://graph.microsoft.com/v1.0"
	// 上传根目录，按学号分文件夹：/LabSheets/{studentID}/
	rootFolder = "LabSheets"
)

var ErrNotConfigured = errors.New("onedrive not configured")

type OneDrive struct {
	clientID     string
	clientSecret string
	refreshToken string
	httpc        *retryablehttp.Client
}

func New(clientID, clientSecret, refreshToken string) *OneDrive {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.Logger = nil
	return &OneDrive{
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		httpc:        c,
	}
}

// Enabled OAuth 凭据是否配置齐全
func (o *OneDrive) Enabled() bool {
	return o.clientID != "" && o.clientSecret != "" && o.refreshToken != ""
}

// Upload 上传文件到 /LabSheets/{studentID}/ 下并返回匿名只读共享链接
func (o *OneDrive) Upload(ctx context.Context, filePath, studentID string) (string, error) {
	if !o.Enabled() {
		return "", ErrNotConfigured
	}
	accessToken, err := o.accessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("get access token: %w", err)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}

	// 路径寻址的 PUT，内容直接上载
	name := filepath.Base(filePath)
	uploadURL := fmt.Sprintf("%s/me/drive/root:/%s/%s/%s:/content",
		graphURL, rootFolder, url.PathEscape(studentID), url.PathEscape(name))

	req, err := retryablehttp.NewRequestWithContext(ctx, "PUT", uploadURL, bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := o.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload failed: status %d", resp.StatusCode)
	}

	var item struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return "", err
	}

	link, err := o.createShareLink(ctx, accessToken, item.ID)
	if err != nil {
		return "", fmt.Errorf("create share link: %w", err)
	}
	return link, nil
}

// accessToken 用 refresh token 换一枚新的访问令牌
func (o *OneDrive) accessToken(ctx context.Context) (string, error) {
	form := url.Values{
		"client_id":     {o.clientID},
		"client_secret": {o.clientSecret},
		"refresh_token": {o.refreshToken},
		"grant_type":    {"refresh_token"},
		"scope":         {"https://graph.microsoft.com/Files.ReadWrite offline_access"},
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("token endpoint status %d", resp.StatusCode)
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", errors.New("empty access token")
	}
	return body.AccessToken, nil
}

func (o *OneDrive) createShareLink(ctx context.Context, accessToken, itemID string) (string, error) {
	payload := []byte(`{"type":"view","scope":"anonymous"}`)
	req, err := retryablehttp.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/me/drive/items/%s/createLink", graphURL, itemID), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("createLink status %d", resp.StatusCode)
	}
	var body struct {
		Link struct {
			WebURL string `json:"webUrl"`
		} `json:"link"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Link.WebURL, nil
}
