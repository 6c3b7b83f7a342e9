package handlers

import "strings"

// findIndex はヘッダー行から候補名のいずれかに一致する列の
// インデックスを返す（大文字小文字は無視）。見つからなければ-1。
func findIndex(slice []string, candidates ...string) int {
	for _, candidate := range candidates {
		for i, item := range slice {
			if strings.EqualFold(strings.TrimSpace(item), candidate) {
				return i
			}
		}
	}
	return -1
}
