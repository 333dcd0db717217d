package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword 生成带随机盐的 bcrypt 哈希。
//
// 盐由 bcrypt 每次调用随机生成并内嵌在哈希串里，同一明文两次哈希结果不同。
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 校验明文密码与存储哈希是否匹配。
//
// 任何不匹配或哈希格式错误都返回 false，不向调用方抛出错误。
func CheckPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
