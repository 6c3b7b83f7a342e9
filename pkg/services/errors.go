package services

import "errors"

// ErrInvalidParameter は構造的に不正な入力（予測期間・汚染率の範囲外、負の販売数など）を表す。
// 呼び出し側に伝播する唯一のエラー分類。データ不足やモデル学習の失敗は
// フォールバック経路に変換され、エラーとしては返らない。
var ErrInvalidParameter = errors.New("invalid parameter")
