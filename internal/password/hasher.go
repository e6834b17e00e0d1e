// Package password はパスワードのハッシュ化と検証を提供する。
//
// ハッシュはscryptで計算し、`scrypt$base64(salt)$base64(digest)`の
// 3パート形式で保存する。検証は専用の定数時間比較プリミティブで行い、
// タイミングサイドチャネルを作らない。
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	// scryptパラメータ。保存済みハッシュとの互換性があるため変更不可。
	scryptN = 16384
	scryptR = 8
	scryptP = 1

	saltLen = 16
	keyLen  = 32

	algorithmTag = "scrypt"
)

// Hash は平文パスワードから保存用のハッシュ文字列を生成する。
// 呼び出しごとに新しいランダムソルトを使用する。
func Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	digest, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}

	return algorithmTag + "$" +
		base64.StdEncoding.EncodeToString(salt) + "$" +
		base64.StdEncoding.EncodeToString(digest), nil
}

// Verify は平文パスワードを保存済みハッシュと照合する。
// 形式不正・未知のアルゴリズムタグはエラーではなくfalseを返す（fail closed）。
func Verify(password, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 3 {
		return false
	}
	if parts[0] != algorithmTag {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	if len(expected) == 0 {
		return false
	}

	actual, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, len(expected))
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(actual, expected) == 1
}
